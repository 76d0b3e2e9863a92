package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllTables(t *testing.T) {
	tables := AllTables()
	assert.Len(t, tables, 3)

	for _, name := range []string{"sensor_records", "irrigation_predictions", "training_runs"} {
		found := false
		for _, ddl := range tables {
			if strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+name+" (") {
				found = true
			}
		}
		assert.True(t, found, "missing table %s", name)
	}
}

func TestSensorRecordColumnsMatchSchema(t *testing.T) {
	for _, col := range strings.Split(sensorRecordColumns, ",") {
		col = strings.TrimSpace(col)
		assert.Contains(t, SensorRecordsTableSQL, "\t"+col+" ", "column %s not in schema", col)
	}
}
