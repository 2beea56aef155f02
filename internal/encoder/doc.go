// Package encoder writes tables to analytics file formats.
//
// # Supported Formats
//
//   - CSV: header row, ISO dates, empty cells for nulls
//   - Parquet: columnar, one optional leaf per column, DATE logical type
//   - Avro: Object Container File with a schema derived from the table
//   - SQLite: single table with date and label indexes (see internal/sqlstore)
//
// # Encoder Factory
//
// Use Factory to create encoder instances from run configuration:
//
//	factory := encoder.NewFactory(encoder.FactoryConfig{
//	    ParquetCompression: "snappy",
//	    AvroCodec:          "deflate",
//	    TableName:          "stock_sentiment",
//	})
//	enc, err := factory.CreateEncoder(format)
//	if err != nil {
//	    return err
//	}
//	stats, err := enc.Encode(path, t)
//
// ParseFormat maps configured names such as "parquet" to a format and
// rejects anything else with errors.ErrUnsupportedFormat.
//
// # Compression Options
//
//	Parquet: "snappy", "gzip", "lz4", "zstd", "uncompressed"
//	Avro:    "null", "deflate", "snappy", "gzip"
//
// Avro "gzip" wraps an uncompressed container in a gzip stream and uses the
// ".avro.gz" extension.
//
// # Round Trips
//
// ReadParquet restores a table with its original column order and dtypes.
// The order lives in the ColumnsMetadataKey footer entry since group fields
// are stored sorted by name.
package encoder
