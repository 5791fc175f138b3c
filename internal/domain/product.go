package domain

// Product описывает товар каталога
type Product struct {
	ID          string
	Name        string
	Category    string
	Brand       string
	Price       int64 // Цена хранится в копейках
	Currency    string
	Available   bool
	Description string
	ImagePath   string
}

func NewProduct(id string, name string, category string, brand string, price int64,
	currency string, available bool, description string, imagePath string) *Product {
	return &Product{
		ID:          id,
		Name:        name,
		Category:    category,
		Brand:       brand,
		Price:       price,
		Currency:    currency,
		Available:   available,
		Description: description,
		ImagePath:   imagePath,
	}
}
