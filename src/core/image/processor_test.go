package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"testing"

	"ip-risk-server-go/src/configs"
	"ip-risk-server-go/src/core/utils"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("gif.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func testSecurity() *configs.SecurityConfig {
	return &configs.SecurityConfig{
		MaxFileSize:    1024 * 1024,
		MaxPixels:      10000,
		MaxWidth:       200,
		MaxHeight:      200,
		AllowedFormats: []string{"jpeg", "png", "webp", "bmp"},
		EnableDeepScan: true,
	}
}

func newTestProcessor(sec *configs.SecurityConfig) *ImageProcessor {
	return NewImageProcessor(sec, utils.NewWriterLogger("error", io.Discard))
}

func TestDecodeDataURL(t *testing.T) {
	raw := []byte("hello image")
	b64 := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name     string
		input    string
		wantMIME string
		wantErr  bool
	}{
		{"带前缀", "data:image/png;base64," + b64, "image/png", false},
		{"纯base64", b64, "", false},
		{"首尾空白", "  " + b64 + "\n", "", false},
		{"缺少填充", base64.RawStdEncoding.EncodeToString(raw), "", false},
		{"缺少逗号", "data:image/png;base64", "", true},
		{"非base64的data URL", "data:text/plain,hello", "", true},
		{"非法字符", "!!!not base64!!!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mime, err := DecodeDataURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeDataURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(data, raw) {
				t.Errorf("data = %q, want %q", data, raw)
			}
			if mime != tt.wantMIME {
				t.Errorf("mime = %q, want %q", mime, tt.wantMIME)
			}
		})
	}
}

func TestProcessDataURL_Valid(t *testing.T) {
	pngData := encodePNG(t, 20, 10)
	p := newTestProcessor(testSecurity())

	for _, input := range []string{
		"data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData),
		base64.StdEncoding.EncodeToString(pngData),
	} {
		img, err := p.ProcessDataURL(input)
		if err != nil {
			t.Fatalf("ProcessDataURL() error = %v", err)
		}
		if img.Format != "png" || img.Width != 20 || img.Height != 10 {
			t.Errorf("image = %+v", img)
		}
		if !bytes.Equal(img.Data, pngData) {
			t.Error("decoded bytes differ from input")
		}
	}

	m := p.GetMetrics()
	if m.TotalProcessed != 2 || m.DataURLs != 1 || m.Base64Direct != 1 || m.FailedValidations != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestProcessDataURL_Rejected(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString

	small := testSecurity()
	small.MaxFileSize = 16

	tests := []struct {
		name  string
		sec   *configs.SecurityConfig
		input func(t *testing.T) string
	}{
		{
			name:  "base64错误",
			input: func(t *testing.T) string { return "data:image/png;base64,@@@" },
		},
		{
			name:  "文件过大",
			sec:   small,
			input: func(t *testing.T) string { return b64(encodePNG(t, 10, 10)) },
		},
		{
			name:  "尺寸超限",
			input: func(t *testing.T) string { return b64(encodePNG(t, 300, 10)) },
		},
		{
			name:  "像素超限",
			input: func(t *testing.T) string { return b64(encodePNG(t, 150, 150)) },
		},
		{
			name:  "实际格式不被允许",
			input: func(t *testing.T) string { return b64(encodeGIF(t)) },
		},
		{
			name:  "声明格式不被允许",
			input: func(t *testing.T) string { return "data:image/svg+xml;base64," + b64([]byte("<svg></svg>")) },
		},
		{
			name:  "可执行文件",
			input: func(t *testing.T) string { return b64([]byte("MZ\x90\x00\x03 executable payload")) },
		},
		{
			name:  "不是图片",
			input: func(t *testing.T) string { return b64([]byte("just some text, not an image")) },
		},
		{
			name:  "空数据",
			input: func(t *testing.T) string { return "data:image/png;base64," },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sec := tt.sec
			if sec == nil {
				sec = testSecurity()
			}
			p := newTestProcessor(sec)
			_, err := p.ProcessDataURL(tt.input(t))
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("ProcessDataURL() error = %v, want ErrInvalidImage", err)
			}
			if p.GetMetrics().FailedValidations != 1 {
				t.Errorf("FailedValidations = %d, want 1", p.GetMetrics().FailedValidations)
			}
		})
	}
}

func TestFormatFromMIME(t *testing.T) {
	tests := map[string]string{
		"image/png":             "png",
		"IMAGE/JPEG":            "jpeg",
		"image/webp; charset=x": "webp",
		"":                      "",
		"application/pdf":       "application/pdf",
	}
	for in, want := range tests {
		if got := formatFromMIME(in); got != want {
			t.Errorf("formatFromMIME(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProcessDataURL_PayloadCounted(t *testing.T) {
	p := newTestProcessor(testSecurity())

	_, err := p.ProcessDataURL(base64.StdEncoding.EncodeToString([]byte("PK\x03\x04 archive")))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("ProcessDataURL() error = %v, want ErrInvalidImage", err)
	}
	if _, err := p.ProcessDataURL(base64.StdEncoding.EncodeToString([]byte("plain text"))); err == nil {
		t.Fatal("ProcessDataURL() accepted plain text")
	}

	m := p.GetMetrics()
	if m.SecurityIncidents != 1 || m.FailedValidations != 2 {
		t.Errorf("metrics = %+v, want 1 incident and 2 failures", m)
	}
}
