package logging

import (
	"bytes"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		config Config
		expErr string
	}{
		"defaults": {},
		"debug json to file": {
			config: Config{Level: "debug", Format: "json", File: &FileConfig{Path: "forge.log", MaxSizeMB: 10}},
		},
		"bad level": {
			config: Config{Level: "loud"},
			expErr: "parsing log level",
		},
		"bad format": {
			config: Config{Format: "xml"},
			expErr: "unknown log format",
		},
		"file without path": {
			config: Config{File: &FileConfig{}},
			expErr: "log file path is required",
		},
		"negative rotation": {
			config: Config{File: &FileConfig{Path: "forge.log", MaxBackups: -1}},
			expErr: "must not be negative",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestConfig_NewLogger(t *testing.T) {
	tests := map[string]struct {
		config  Config
		expLine string
	}{
		"json": {
			config:  Config{Format: "json"},
			expLine: `"msg":"hello"`,
		},
		"text": {
			config:  Config{},
			expLine: "msg=hello",
		},
		"filtered by level": {
			config: Config{Level: "warn"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.NewLogger(&buf).Info("hello", "session", 1)

			if tt.expLine == "" {
				testutil.AssertEqual(t, "output", buf.String(), "")
				return
			}
			testutil.AssertEqual(t, "contains", bytes.Contains(buf.Bytes(), []byte(tt.expLine)), true)
		})
	}
}
