package s3check

import (
	"context"
	"testing"

	"github.com/openvstorage/vpool-wizard/internal/config"
)

func TestProbeRejectsIncompleteParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"missing endpoint", Params{AccessKey: "key", SecretKey: "secret"}},
		{"missing access key", Params{Endpoint: "https://ceph.local:7480", SecretKey: "secret"}},
		{"missing secret key", Params{Endpoint: "https://ceph.local:7480", AccessKey: "key"}},
		{"whitespace endpoint", Params{Endpoint: "   ", AccessKey: "key", SecretKey: "secret"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := Probe(context.Background(), config.New(), tc.params); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAppliesTo(t *testing.T) {
	for _, backendType := range []string{"ceph_s3", "amazon_s3", "swift_s3"} {
		if !AppliesTo(backendType) {
			t.Errorf("AppliesTo(%s) = false, want true", backendType)
		}
	}
	for _, backendType := range []string{"alba", "distributed", ""} {
		if AppliesTo(backendType) {
			t.Errorf("AppliesTo(%s) = true, want false", backendType)
		}
	}
}
