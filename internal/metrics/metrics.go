// Package metrics exposes Prometheus collectors for replication components.
package metrics

const namespace = "ledgerpod"

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
