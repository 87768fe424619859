package entity

type ColorSpec struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	HexCode  string `json:"hex_code" db:"hex_code"`
	Brand    string `json:"brand" db:"brand"`
	Category string `json:"category" db:"category"`
}
