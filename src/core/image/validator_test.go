package image

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"strings"
	"testing"

	"ip-risk-server-go/src/core/utils"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestUploadValidator_Reasons(t *testing.T) {
	v := NewUploadValidator(testSecurity(), utils.NewWriterLogger("error", io.Discard))

	tests := []struct {
		name       string
		data       func(t *testing.T) []byte
		declared   string
		reason     string
		suspicious bool
	}{
		{"空数据", func(t *testing.T) []byte { return nil }, "png", ReasonEmpty, false},
		{"声明格式不被允许", func(t *testing.T) []byte { return encodePNG(t, 4, 4) }, "svg+xml", ReasonFormat, false},
		{"PE文件头", func(t *testing.T) []byte { return []byte("MZ\x90\x00\x03 executable") }, "png", ReasonPayload, true},
		{"ELF文件头", func(t *testing.T) []byte { return []byte("\x7fELF\x02\x01\x01") }, "", ReasonPayload, true},
		{"ZIP文件头", func(t *testing.T) []byte { return []byte("PK\x03\x04 archive") }, "", ReasonPayload, true},
		{"无法解码", func(t *testing.T) []byte { return []byte("plain text") }, "", ReasonDecode, false},
		{"实际格式不被允许", encodeGIF, "", ReasonFormat, false},
		{"宽度超限", func(t *testing.T) []byte { return encodePNG(t, 201, 1) }, "png", ReasonDimension, false},
		{"像素超限", func(t *testing.T) []byte { return encodePNG(t, 101, 100) }, "png", ReasonDimension, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.data(t), tt.declared)
			if result.IsValid {
				t.Fatalf("Validate() IsValid = true, want reason %q", tt.reason)
			}
			if result.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q (error: %v)", result.Reason, tt.reason, result.Error)
			}
			if result.Suspicious != tt.suspicious {
				t.Errorf("Suspicious = %v, want %v", result.Suspicious, tt.suspicious)
			}
			if result.Error == nil {
				t.Error("Error = nil for rejected upload")
			}
		})
	}
}

func TestUploadValidator_DeepScanDisabled(t *testing.T) {
	sec := testSecurity()
	sec.EnableDeepScan = false
	v := NewUploadValidator(sec, utils.NewWriterLogger("error", io.Discard))

	result := v.Validate([]byte("MZ\x90\x00\x03 executable"), "")
	if result.Reason != ReasonDecode || result.Suspicious {
		t.Errorf("Validate() = %+v, want decode failure without payload flag", result)
	}
}

func TestUploadValidator_FormatAliases(t *testing.T) {
	sec := testSecurity()
	sec.AllowedFormats = []string{"JPG", "png"}
	v := NewUploadValidator(sec, utils.NewWriterLogger("error", io.Discard))

	for _, declared := range []string{"jpg", "jpeg", "JPEG", ""} {
		result := v.Validate(encodeJPEG(t, 8, 6), declared)
		if !result.IsValid {
			t.Fatalf("Validate(%q) rejected: %v", declared, result.Error)
		}
		if result.Format != "jpeg" || result.Width != 8 || result.Height != 6 {
			t.Errorf("Validate(%q) = %+v", declared, result)
		}
	}
}

func TestUploadValidator_DeclaredMismatch(t *testing.T) {
	var buf bytes.Buffer
	v := NewUploadValidator(testSecurity(), utils.NewWriterLogger("warn", &buf))

	data := encodeJPEG(t, 4, 4)
	result := v.Validate(data, "png")
	if !result.IsValid {
		t.Fatalf("Validate() rejected: %v", result.Error)
	}
	if result.Format != "jpeg" {
		t.Errorf("Format = %q, want jpeg", result.Format)
	}
	if result.FileSize != int64(len(data)) {
		t.Errorf("FileSize = %d, want %d", result.FileSize, len(data))
	}
	if out := buf.String(); !strings.Contains(out, "declared=png") || !strings.Contains(out, "actual=jpeg") {
		t.Errorf("mismatch not logged, got %q", out)
	}
}
