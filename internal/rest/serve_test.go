// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/georender/internal/ops"
	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/render"
	"github.com/mlnoga/georender/internal/source"
	"github.com/mlnoga/georender/internal/transform"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	src := source.NewGradient(512, 300, 1, 2, 0)
	r := render.NewRenderer(src, transform.NewScale(0.5, 0.5))
	c := &ops.Context{MaxThreads: 2}
	return NewRouter(c, r, 64, ops.PreviewOptions{})
}

func get(router http.Handler, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	w := get(setupTestRouter(t), "/api/v1/ping")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["message"] != "pong" {
		t.Errorf("message %q; want pong", body["message"])
	}
}

func TestIndex(t *testing.T) {
	w := get(setupTestRouter(t), "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want %d", w.Code, http.StatusOK)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("api/v1/tiles")) {
		t.Errorf("index page does not reference the tile endpoint")
	}
}

func TestInfo(t *testing.T) {
	w := get(setupTestRouter(t), "/api/v1/info")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d; want %d", w.Code, http.StatusOK)
	}
	var body struct {
		Input      rectJSON `json:"input"`
		View       rectJSON `json:"view"`
		Bands      int      `json:"bands"`
		ScalarType string   `json:"scalarType"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Input.MaxX != 512 || body.Input.MaxY != 300 {
		t.Errorf("input %+v; want 512x300", body.Input)
	}
	if body.View.MaxX < 256 || body.View.MaxX > 258 {
		t.Errorf("view %+v; want about 256 wide", body.View)
	}
	if body.Bands != 1 || body.ScalarType != raster.Float32.String() {
		t.Errorf("bands %d type %s", body.Bands, body.ScalarType)
	}
}

func TestTiles(t *testing.T) {
	router := setupTestRouter(t)
	tests := []struct {
		url         string
		code        int
		contentType string
	}{
		{"/api/v1/tiles/0/0/0", http.StatusOK, "image/png"},
		{"/api/v1/tiles/0/1/1?format=jpg", http.StatusOK, "image/jpeg"},
		{"/api/v1/tiles/1/0/0?format=tif", http.StatusOK, "image/tiff"},
		{"/api/v1/tiles/0/5/0", http.StatusNoContent, ""},
		{"/api/v1/tiles/0/100/100", http.StatusBadRequest, ""},
		{"/api/v1/tiles/0/-2/0", http.StatusBadRequest, ""},
		{"/api/v1/tiles/x/0/0", http.StatusBadRequest, ""},
		{"/api/v1/tiles/-1/0/0", http.StatusBadRequest, ""},
		{"/api/v1/tiles/0/a/0", http.StatusBadRequest, ""},
		{"/api/v1/tiles/0/0/b", http.StatusBadRequest, ""},
		{"/api/v1/tiles/0/0/0?format=gif", http.StatusBadRequest, ""},
	}
	for _, test := range tests {
		w := get(router, test.url)
		if w.Code != test.code {
			t.Errorf("%s: status %d; want %d", test.url, w.Code, test.code)
			continue
		}
		if test.contentType != "" && w.Header().Get("Content-Type") != test.contentType {
			t.Errorf("%s: content type %q; want %q", test.url, w.Header().Get("Content-Type"), test.contentType)
		}
	}

	w := get(router, "/api/v1/tiles/0/0/0")
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("tile bounds %v; want 64x64", b)
	}
}

func TestHugeTileIndexDoesNotExhaustPool(t *testing.T) {
	router := setupTestRouter(t)
	urls := []string{
		"/api/v1/tiles/0/144115188075855871/0",
		"/api/v1/tiles/0/0/144115188075855871",
		"/api/v1/tiles/3/-144115188075855871/0",
	}
	for i := 0; i < 3; i++ {
		for _, url := range urls {
			if w := get(router, url); w.Code != http.StatusBadRequest {
				t.Errorf("%s: status %d; want %d", url, w.Code, http.StatusBadRequest)
			}
		}
	}

	done := make(chan int, 1)
	go func() { done <- get(router, "/api/v1/tiles/0/0/0").Code }()
	select {
	case code := <-done:
		if code != http.StatusOK {
			t.Errorf("status %d after invalid requests; want %d", code, http.StatusOK)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("valid tile request blocked after invalid requests")
	}
}

func TestTileRange(t *testing.T) {
	tests := []struct {
		bounds image.Rectangle
		ts     int
		lo, hi image.Point
	}{
		{image.Rect(0, 0, 257, 151), 64, image.Pt(-1, -1), image.Pt(5, 3)},
		{image.Rect(-10, -64, 64, 64), 64, image.Pt(-2, -2), image.Pt(1, 1)},
		{image.Rectangle{}, 64, image.Pt(0, 0), image.Pt(0, 0)},
	}
	for _, test := range tests {
		lo, hi := tileRange(test.bounds, test.ts)
		if lo != test.lo || hi != test.hi {
			t.Errorf("tileRange(%v, %d) = %v, %v; want %v, %v", test.bounds, test.ts, lo, hi, test.lo, test.hi)
		}
	}
}

func TestServeContextShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeContext(ctx, "127.0.0.1:0", setupTestRouter(t), nil)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("server did not shut down")
	}
}
