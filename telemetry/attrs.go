package telemetry

import "go.opentelemetry.io/otel/attribute"

// attrsFromTags converts "key", "value" pairs into OTEL attributes. A
// trailing unpaired tag is dropped.
func attrsFromTags(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}
