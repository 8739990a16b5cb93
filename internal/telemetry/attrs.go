package telemetry

import "go.opentelemetry.io/otel/attribute"

func stringAttr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func intAttr(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}
