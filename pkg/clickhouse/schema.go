package clickhouse

import "fmt"

// Schema returns the DDL for the bars and indicator tables in db.
func Schema(db string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.bars (
            ticker      LowCardinality(String),
            ts          DateTime('America/New_York'),
            date        Date,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Int64,
            source      LowCardinality(String),
            inserted_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(inserted_at)
        PARTITION BY toYYYYMM(date)
        ORDER BY (ticker, ts)`, db),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.indicator_records (
            run_id            UUID,
            ticker            LowCardinality(String),
            date              Date,
            close             Float64,
            sma               Nullable(Float64),
            ema               Nullable(Float64),
            ma_10             Nullable(Float64),
            ma_20             Nullable(Float64),
            rsi               Nullable(Float64),
            ema_12            Nullable(Float64),
            ema_26            Nullable(Float64),
            macd              Nullable(Float64),
            signal_line       Nullable(Float64),
            upper_band        Nullable(Float64),
            lower_band        Nullable(Float64),
            pct_k             Nullable(Float64),
            pct_d             Nullable(Float64),
            adx               Nullable(Float64),
            plus_di           Nullable(Float64),
            minus_di          Nullable(Float64),
            ma_signal         LowCardinality(String),
            rsi_signal        LowCardinality(String),
            bollinger_signal  LowCardinality(String),
            macd_signal       LowCardinality(String),
            stochastic_signal LowCardinality(String),
            adx_signal        LowCardinality(String),
            computed_at       DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(computed_at)
        PARTITION BY toYYYYMM(date)
        ORDER BY (ticker, date)`, db),
	}
}
