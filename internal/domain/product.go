package domain

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

func (p Product) DisplayImage() string {
	if p.Image == "" {
		return placeholderImage
	}
	return p.Image
}
