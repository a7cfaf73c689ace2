package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name" binding:"notblank"`
	Count int    `json:"test_count" binding:"required,gt=0"`
}

func bind(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var p payload
	return Bind(c, &p)
}

func TestBindTranslatesJSONFieldNames(t *testing.T) {
	Setup()

	fields := bind(t, `{"name":"  ","test_count":0}`)
	require.Contains(t, fields, "name")
	require.Contains(t, fields, "test_count")
	require.Equal(t, "name must not be blank", fields["name"])
}

func TestBindReportsSyntaxErrors(t *testing.T) {
	Setup()
	fields := bind(t, `{"name":`)
	require.Contains(t, fields, "detail")
}

func TestBindAcceptsValidBody(t *testing.T) {
	Setup()
	require.Nil(t, bind(t, `{"name":"Quiz","test_count":2}`))
}
