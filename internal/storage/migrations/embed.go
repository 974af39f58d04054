package migrations

import "embed"

// PostgresFS embeds the trade and market-details schemas.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the candle timeseries schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
