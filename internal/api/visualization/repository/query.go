package visualizationRepository

const (
	queryListColors = `
		SELECT
			id,
			name,
			hex_code,
			brand,
			category
		FROM paint_colors
		WHERE (CAST(:brand AS TEXT) = '' OR brand = :brand)
			AND (CAST(:category AS TEXT) = '' OR category = :category)
		ORDER BY brand, name, id
	`

	queryGetColorByID = `
		SELECT
			id,
			name,
			hex_code,
			brand,
			category
		FROM paint_colors
		WHERE id = :id
	`
)
