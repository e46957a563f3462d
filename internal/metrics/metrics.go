// Package metrics exposes application metrics collectors.
package metrics

const namespace = "poolcoord"

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
