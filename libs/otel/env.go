package otelx

import (
	"os"
	"strconv"
	"strings"
)

var lookupEnv = os.LookupEnv

// ConfigFromEnv reads the OTEL_* settings. A missing or malformed value keeps its default.
func ConfigFromEnv(serviceName string) Config {
	enabled := true
	if v := strings.TrimSpace(getenv("OTEL_ENABLED", "true")); v != "" {
		enabled = v != "false" && v != "0"
	}

	sampleRatio := 1.0
	if v := strings.TrimSpace(getenv("OTEL_SAMPLING_RATIO", "1")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			sampleRatio = f
		}
	}

	return Config{
		Enabled:        enabled,
		ServiceName:    serviceName,
		ServiceVersion: strings.TrimSpace(getenv("SERVICE_VERSION", "dev")),
		OTLPEndpoint:   strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")),
		Environment:    strings.TrimSpace(getenv("APP_ENV", "development")),
		Sampler:        strings.ToLower(strings.TrimSpace(getenv("OTEL_TRACES_SAMPLER", SamplerParentRatio))),
		SampleRatio:    sampleRatio,
	}
}

func getenv(key, fallback string) string {
	if v, ok := lookupEnv(key); ok {
		return v
	}
	return fallback
}
