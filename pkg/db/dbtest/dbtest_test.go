package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
)

func TestOpenIsQuiet(t *testing.T) {
	conn := Open(t)
	require.Equal(t, gormlogger.Discard, conn.Config.Logger)

	var order models.Order
	err := conn.Where("reference_no = ?", "HL-missing").First(&order).Error
	require.Error(t, err)
}
