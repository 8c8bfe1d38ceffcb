package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	l.Error("e", nil)

	out := buf.String()
	if strings.Contains(out, "[debug]") || strings.Contains(out, "[info]") {
		t.Errorf("below-threshold entries logged: %q", out)
	}
	if !strings.Contains(out, "[warn]") || !strings.Contains(out, "[error]") {
		t.Errorf("threshold entries missing: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	l.Info("scan complete", map[string]interface{}{"materials": 3})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry.Level != "info" || entry.Message != "scan complete" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["materials"] != float64(3) {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestHumanFormatFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	l.Info("material created", map[string]interface{}{"material": "MAT_wood"})
	if !strings.Contains(buf.String(), "material=MAT_wood") {
		t.Errorf("fields not rendered: %q", buf.String())
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: HumanFormat, Level: "verbose", Output: &buf})
	l.Debug("d", nil)
	l.Info("i", nil)
	if strings.Contains(buf.String(), "[debug]") {
		t.Error("debug logged at defaulted info level")
	}
	if !strings.Contains(buf.String(), "[i") {
		t.Error("info entry missing")
	}
}

func TestDiscardLogger(t *testing.T) {
	// Must simply not panic with nil fields and every level.
	l := NewDiscardLogger()
	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	l.Error("e", map[string]interface{}{"k": "v"})
}
