// Package artifact читает и пишет артефакты офлайн-сборки индекса:
// бинарную таблицу векторов и согласованную с ней таблицу товаров (CSV).
// Порядок строк CSV совпадает с порядком записей таблицы векторов —
// идентификатор товара продублирован в обеих таблицах для проверки при загрузке.
package artifact

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/shopspring/decimal"
)

const (
	vectorMagic   = "VPM1"
	maxVectorDim  = 1 << 16
	maxRecords    = 1 << 24
	maxProductIDs = 256 // лимит длины идентификатора в байтах
)

var csvHeader = []string{"id", "name", "category", "brand", "price", "currency", "available", "description", "image_path"}

// WriteVectors сохраняет таблицу векторов: магическая сигнатура, размерность,
// количество записей, затем для каждой записи id товара и dim float32 (little endian).
func WriteVectors(path string, dim int, embeddings []domain.Embedding) error {
	const op = "artifact.WriteVectors"

	if dim <= 0 || dim > maxVectorDim {
		return e.Wrap(op, fmt.Errorf("invalid dimension %d", dim))
	}

	f, err := os.Create(path)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if _, err := w.WriteString(vectorMagic); err != nil {
		return e.Wrap(op, err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(dim)); err != nil {
		return e.Wrap(op, err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(embeddings))); err != nil {
		return e.Wrap(op, err)
	}

	for _, emb := range embeddings {
		if len(emb.Vector) != dim {
			return e.Wrap(op, fmt.Errorf("product %s: %w", emb.ProductID, e.ErrDimensionMismatch))
		}
		if len(emb.ProductID) == 0 || len(emb.ProductID) > maxProductIDs {
			return e.Wrap(op, fmt.Errorf("invalid product id %q", emb.ProductID))
		}

		if err := binary.Write(w, binary.LittleEndian, uint16(len(emb.ProductID))); err != nil {
			return e.Wrap(op, err)
		}
		if _, err := w.WriteString(emb.ProductID); err != nil {
			return e.Wrap(op, err)
		}
		if err := binary.Write(w, binary.LittleEndian, emb.Vector); err != nil {
			return e.Wrap(op, err)
		}
	}

	if err := w.Flush(); err != nil {
		return e.Wrap(op, err)
	}

	return f.Sync()
}

// ReadVectors загружает таблицу векторов целиком.
func ReadVectors(path string) (int, []domain.Embedding, error) {
	const op = "artifact.ReadVectors"

	f, err := os.Open(path)
	if err != nil {
		return 0, nil, e.Wrap(op, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic := make([]byte, len(vectorMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
	}
	if string(magic) != vectorMagic {
		return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
	}

	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
	}
	if dim == 0 || dim > maxVectorDim || count > maxRecords {
		return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
	}

	embeddings := make([]domain.Embedding, 0, count)
	for i := uint32(0); i < count; i++ {
		var idLen uint16
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
		}
		if idLen == 0 || int(idLen) > maxProductIDs {
			return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
		}

		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
		}

		vector := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vector); err != nil {
			return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
		}

		embeddings = append(embeddings, *domain.NewEmbedding(string(id), vector))
	}

	// После последней записи данных быть не должно
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return 0, nil, e.Wrap(op, e.ErrVectorTableInvalid)
	}

	return int(dim), embeddings, nil
}

// WriteProducts сохраняет таблицу товаров в CSV. Порядок строк обязан совпадать
// с порядком записей в таблице векторов.
func WriteProducts(path string, products []domain.Product) error {
	const op = "artifact.WriteProducts"

	f, err := os.Create(path)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return e.Wrap(op, err)
	}

	for _, p := range products {
		row := []string{
			p.ID,
			p.Name,
			p.Category,
			p.Brand,
			decimal.New(p.Price, -2).StringFixed(2),
			p.Currency,
			strconv.FormatBool(p.Available),
			p.Description,
			p.ImagePath,
		}
		if err := w.Write(row); err != nil {
			return e.Wrap(op, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return e.Wrap(op, err)
	}

	return f.Sync()
}

// ReadProducts читает таблицу товаров из CSV, сохраняя порядок строк файла.
// Формат одинаков для исходного каталога и для отфильтрованного артефакта.
func ReadProducts(path string) ([]domain.Product, error) {
	const op = "artifact.ReadProducts"

	f, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range csvHeader {
		if _, ok := col[name]; !ok {
			return nil, e.Wrap(op, fmt.Errorf("missing column %q", name))
		}
	}

	var products []domain.Product
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		id := strings.TrimSpace(row[col["id"]])
		if id == "" {
			return nil, e.Wrap(op, fmt.Errorf("line %d: empty product id", line))
		}

		price, err := priceToCents(row[col["price"]])
		if err != nil {
			return nil, e.Wrap(op, fmt.Errorf("line %d: %w", line, err))
		}

		available, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(row[col["available"]])))
		if err != nil {
			return nil, e.Wrap(op, fmt.Errorf("line %d: invalid available flag", line))
		}

		products = append(products, *domain.NewProduct(
			id,
			row[col["name"]],
			row[col["category"]],
			row[col["brand"]],
			price,
			row[col["currency"]],
			available,
			row[col["description"]],
			row[col["image_path"]],
		))
	}

	return products, nil
}

// priceToCents переводит строку вида "599.99" или "600" в копейки.
func priceToCents(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, errors.New("price is empty")
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	if d.LessThan(decimal.Zero) {
		return 0, fmt.Errorf("negative price %q", s)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("price %q has more than 2 decimal places", s)
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
