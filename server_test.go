package postshot

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseCardPath(t *testing.T) {
	tests := []struct {
		name      string
		wantID    string
		wantWidth int
		wantErr   bool
	}{
		{"123.png", "123", NaturalWidth, false},
		{"123-400.png", "123", 400, false},
		{"123-0.png", "123", 0, false},
		{"123-00.png", "123", 0, false},
		{"123-99999999999999999999.png", "123", math.MaxInt, false},
		{"abc.png", "", 0, true},
		{"123.jpg", "", 0, true},
		{"123-.png", "", 0, true},
		{"-400.png", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, width, err := parseCardPath(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCardPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if id != tt.wantID || width != tt.wantWidth {
				t.Errorf("parseCardPath() = (%q, %d), want (%q, %d)", id, width, tt.wantID, tt.wantWidth)
			}
		})
	}
}

func TestServer(t *testing.T) {
	s, _ := newTestShot(t, newStubRenderer(10, 0))
	ts := httptest.NewServer(NewServer(s, nil).Handler())
	t.Cleanup(ts.Close)
	client := ts.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	tests := []struct {
		name             string
		path             string
		wantStatus       int
		wantContentType  string
		wantCacheControl string
		wantWidth        int
	}{
		{"card", "/1.png", http.StatusOK, "image/png", "public, max-age=86400", 700},
		{"scaled card", "/1-350.png", http.StatusOK, "image/png", "public, max-age=86400", 350},
		{"zero width is clamped", "/1-0.png", http.StatusOK, "image/png", "public, max-age=86400", 300},
		{"padded zero width is clamped", "/1-00.png", http.StatusOK, "image/png", "public, max-age=86400", 300},
		{"huge width keeps natural width", "/1-99999999999999999999.png", http.StatusOK, "image/png", "public, max-age=86400", 700},
		{"error image", "/2.png", http.StatusOK, "image/png", "no-store", 0},
		{"not a card", "/abc.png", http.StatusNotFound, "", "", 0},
		{"health", "/healthz", http.StatusOK, "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := client.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()
			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if res.Header.Get("X-Request-Id") == "" {
				t.Error("X-Request-Id is not set")
			}
			if tt.wantContentType != "" && res.Header.Get("Content-Type") != tt.wantContentType {
				t.Errorf("Content-Type = %q, want %q", res.Header.Get("Content-Type"), tt.wantContentType)
			}
			if tt.wantCacheControl != "" && res.Header.Get("Cache-Control") != tt.wantCacheControl {
				t.Errorf("Cache-Control = %q, want %q", res.Header.Get("Cache-Control"), tt.wantCacheControl)
			}
			if tt.wantWidth > 0 {
				img, err := NewImage(res.Body)
				if err != nil {
					t.Fatal(err)
				}
				if img.Width() != tt.wantWidth {
					t.Errorf("width = %d, want %d", img.Width(), tt.wantWidth)
				}
			}
		})
	}
}

func TestServerRedirectsToErrorImage(t *testing.T) {
	chart := NewChartRenderer("https://chart.example.com/chart", nil, 0, nil)
	s, _ := newTestShot(t, chart)
	ts := httptest.NewServer(NewServer(s, nil).Handler())
	t.Cleanup(ts.Close)
	client := ts.Client()
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	res, err := client.Get(ts.URL + "/2.png")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", res.StatusCode, http.StatusFound)
	}
	loc := res.Header.Get("Location")
	if !strings.HasPrefix(loc, "https://chart.example.com/chart?") || !strings.Contains(loc, "Not+found") {
		t.Errorf("Location = %q", loc)
	}
	if res.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", res.Header.Get("Cache-Control"))
	}
}

func TestServerSwap(t *testing.T) {
	a, _ := newTestShot(t, newStubRenderer(10, 0))
	b, _ := newTestShot(t, newStubRenderer(10, 0))
	srv := NewServer(a, nil)
	srv.Swap(b)
	if srv.shot.Load() != b {
		t.Error("Swap() did not replace the shot")
	}
}
