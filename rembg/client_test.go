package rembg

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	nhttp "github.com/chaos-io/maskbrush/util/http"
	"github.com/chaos-io/maskbrush/util/http/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func TestClient_Remove(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, removeBackgroundPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cat.png", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("source"), data)

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", time.Second)
	got, err := c.Remove(context.Background(), "/tmp/cat.png", []byte("source"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestClient_Remove_Failure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("No image uploaded"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Remove(context.Background(), "x.png", []byte("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No image uploaded")
}

func TestClient_Click(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, clickPath, r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(12), req["x"])
		assert.Equal(t, float64(34), req["y"])
		assert.Equal(t, "unselect", req["mode"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"result_image": base64.StdEncoding.EncodeToString(pngBytes),
		})
	}))
	defer server.Close()

	got, err := NewClient(server.URL, time.Second).Click(context.Background(), 12, 34, ModeUnselect)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestClient_Undo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    []byte
		wantErr error
	}{
		{
			name: "撤销成功",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{
					"result_image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
				})
			},
			want: pngBytes,
		},
		{
			name: "400 没有可撤销步骤",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error": "No more undo steps available."}`))
			},
			wantErr: ErrHistoryEmpty,
		},
		{
			name: "缺少 result_image",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantErr: ErrHistoryEmpty,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			defer server.Close()

			got, err := NewClient(server.URL, time.Second).Undo(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Undo_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).Undo(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrHistoryEmpty))
}

func TestClient_WithMockHTTP(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	cli := mocks.NewMockIClient(ctrl)

	cli.EXPECT().
		DoHTTPRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *nhttp.RequestParam) error {
			assert.Equal(t, "http://segmenter"+regeneratePath, p.RequestURI)
			assert.Equal(t, 5*time.Second, p.Timeout)
			resp := p.Response.(*resultImageResp)
			resp.ResultImage = base64.StdEncoding.EncodeToString(pngBytes)
			return nil
		})
	cli.EXPECT().
		DoHTTPRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *nhttp.RequestParam) error {
			assert.Equal(t, "http://segmenter"+downloadImagePath, p.RequestURI)
			*p.Response.(*[]byte) = []byte("segmented")
			return nil
		})
	cli.EXPECT().
		DoHTTPRequest(gomock.Any(), gomock.Any()).
		Return(errors.New("connection refused"))

	c := NewClientWithHTTP("http://segmenter", 5*time.Second, cli)

	got, err := c.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	got, err = c.Download(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("segmented"), got)

	err = c.UploadImage(context.Background(), "", []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDecodeBase64Image(t *testing.T) {
	t.Parallel()

	raw := base64.StdEncoding.EncodeToString([]byte("abc"))
	got, err := decodeBase64Image(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got, err = decodeBase64Image("data:image/png;base64," + raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = decodeBase64Image("!!!")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSelect, m)

	m, err = ParseMode("unselect")
	require.NoError(t, err)
	assert.Equal(t, ModeUnselect, m)

	_, err = ParseMode("label")
	assert.Error(t, err)
}
