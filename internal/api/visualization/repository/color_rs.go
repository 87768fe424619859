package visualizationRepository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	contextPkg "PaintVisualizer/pkg/context"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ColorDB struct {
	ID       string         `db:"id"`
	Name     sql.NullString `db:"name"`
	HexCode  sql.NullString `db:"hex_code"`
	Brand    sql.NullString `db:"brand"`
	Category sql.NullString `db:"category"`
}

func (c ColorDB) toEntity() entity.ColorSpec {
	return entity.ColorSpec{
		ID:       c.ID,
		Name:     c.Name.String,
		HexCode:  normalizeHex(c.HexCode.String),
		Brand:    c.Brand.String,
		Category: c.Category.String,
	}
}

// normalizeHex stores tolerate codes without the leading '#'.
func normalizeHex(hex string) string {
	hex = strings.TrimSpace(hex)
	if hex != "" && !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	return strings.ToUpper(hex)
}

func (r *colorRepository) ListColors(c context.Context, filter visualization.ColorFilter) ([]entity.ColorSpec, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"brand":    filter.Brand,
		"category": filter.Category,
	}

	query, args, err := sqlx.Named(queryListColors, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListColors named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []ColorDB
	if err := r.q.SelectContext(c, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when listing colors")
		return nil, err
	}

	colors := make([]entity.ColorSpec, 0, len(rows))
	for _, row := range rows {
		colors = append(colors, row.toEntity())
	}

	return colors, nil
}

func (r *colorRepository) GetColorByID(c context.Context, id string) (entity.ColorSpec, error) {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryGetColorByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetColorByID named query preparation err")
		return entity.ColorSpec{}, err
	}
	query = r.q.Rebind(query)

	var row ColorDB
	if err := r.q.GetContext(c, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"color_id":   id,
			}).Warn("Color not found")
			return entity.ColorSpec{}, visualization.ErrColorNotFound
		}

		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when getting color")
		return entity.ColorSpec{}, err
	}

	return row.toEntity(), nil
}
