package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	p, start, end := Paginate(23, 3, 10, 10)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 20, start)
	require.Equal(t, 23, end)
	require.True(t, p.HasPrev())
	require.False(t, p.HasNext())

	p, start, end = Paginate(23, 9, 0, 10)
	require.Equal(t, 3, p.Page)
	require.Equal(t, 20, start)
	require.Equal(t, 23, end)

	p, start, end = Paginate(0, 0, 10, 10)
	require.Equal(t, 1, p.Page)
	require.Equal(t, 1, p.TotalPages)
	require.Zero(t, start)
	require.Zero(t, end)
}

func TestRequestIDIsPropagated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		Success(c, http.StatusOK, gin.H{"ctx": RequestIDFromContext(c.Request.Context())})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(w, req)

	require.Equal(t, "abc", w.Header().Get("X-Request-ID"))
	var body struct {
		Data     map[string]string `json:"data"`
		Metadata Metadata          `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "abc", body.Data["ctx"])
	require.Equal(t, "abc", body.Metadata.RequestID)
}

func TestFailUsesCodeMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, http.StatusNotFound, ErrNotFound)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, ErrNotFound, body.Error.Code)
	require.Equal(t, GetMessage(ErrNotFound), body.Error.Message)
	require.NotEmpty(t, body.Metadata.RequestID)
}
