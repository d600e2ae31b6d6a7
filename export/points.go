package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/lucasjlepore/techjournal/canonical"
)

var pointColumns = []string{
	"latitude", "longitude", "lap", "altitude", "timestamp", "heart_rate", "cadence", "speed",
}

// WritePointsCSV writes one row per point. Absent values are empty cells.
func WritePointsCSV(w io.Writer, points []canonical.TrackPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(pointColumns); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			formatFloat(p.Latitude),
			formatFloat(p.Longitude),
			strconv.Itoa(p.Lap),
			formatFloatPtr(p.Altitude),
			formatTimePtr(p.Timestamp),
			formatIntPtr(p.HeartRate),
			formatIntPtr(p.Cadence),
			formatFloatPtr(p.Speed),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Absent numeric values are written as NaN and absent timestamps as empty
// strings; the valid_* flags carry presence explicitly.
type pointParquetRow struct {
	Latitude     float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude    float64 `parquet:"name=longitude, type=DOUBLE"`
	Lap          int32   `parquet:"name=lap, type=INT32"`
	Altitude     float64 `parquet:"name=altitude, type=DOUBLE"`
	Timestamp    string  `parquet:"name=timestamp, type=BYTE_ARRAY, convertedtype=UTF8"`
	HeartRate    float64 `parquet:"name=heart_rate, type=DOUBLE"`
	Cadence      float64 `parquet:"name=cadence, type=DOUBLE"`
	Speed        float64 `parquet:"name=speed, type=DOUBLE"`
	ValidHR      bool    `parquet:"name=valid_heart_rate, type=BOOLEAN"`
	ValidCadence bool    `parquet:"name=valid_cadence, type=BOOLEAN"`
}

// WritePointsParquet writes points to a snappy-compressed parquet file.
func WritePointsParquet(path string, points []canonical.TrackPoint) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writePointsParquet(fw, points); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

// MarshalPointsParquet is WritePointsParquet into memory.
func MarshalPointsParquet(points []canonical.TrackPoint) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	if err := writePointsParquet(fw, points); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

func writePointsParquet(fw source.ParquetFile, points []canonical.TrackPoint) error {
	pw, err := writer.NewParquetWriter(fw, new(pointParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, p := range points {
		row := pointParquetRow{
			Latitude:     p.Latitude,
			Longitude:    p.Longitude,
			Lap:          int32(p.Lap),
			Altitude:     valueOrNaN(p.Altitude),
			Timestamp:    formatTimePtr(p.Timestamp),
			HeartRate:    intOrNaN(p.HeartRate),
			Cadence:      intOrNaN(p.Cadence),
			Speed:        valueOrNaN(p.Speed),
			ValidHR:      p.HeartRate != nil,
			ValidCadence: p.Cadence != nil,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func intOrNaN(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339Nano)
}
