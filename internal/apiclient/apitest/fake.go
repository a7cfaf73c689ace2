// Package apitest provides an in-memory stand-in for the remote tests API.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/testdesk/internal/model"
)

// Fake is a running fake API. All fields are guarded by its mutex; use the
// helper methods from tests.
type Fake struct {
	URL string

	mu     sync.Mutex
	users  map[model.ChatID]model.User
	tests  map[int]model.Test
	nextID int
	fail   map[string]int
	calls  map[string]int

	lastCreate model.CreateTestRequest
	lastUpdate model.UpdateTestRequest
}

// NewServer starts a Fake and closes it when the test ends.
func NewServer(t testing.TB) *Fake {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &Fake{
		users:  make(map[model.ChatID]model.User),
		tests:  make(map[int]model.Test),
		nextID: 1,
		fail:   make(map[string]int),
		calls:  make(map[string]int),
	}

	r := gin.New()
	r.GET("/users/:chat_id", f.getUser)
	r.GET("/tests", f.listTests)
	r.GET("/tests/all/:chat_id", f.listTests)
	r.POST("/tests", f.createTest)
	r.PUT("/tests/:id", f.updateTest)
	r.DELETE("/tests/:id", f.deleteTest)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	f.URL = srv.URL
	return f
}

// AddUser registers a user.
func (f *Fake) AddUser(u model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ChatID] = u
}

// AddTest stores t as-is. A zero id is assigned.
func (f *Fake) AddTest(t model.Test) model.Test {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		t.ID = f.nextID
	}
	if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	f.tests[t.ID] = t
	return t
}

// Test returns the stored record with id.
func (f *Fake) Test(id int) (model.Test, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[id]
	return t, ok
}

// Len returns the number of stored tests.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tests)
}

// FailNext makes the next n requests of route (e.g. "DELETE /tests/:id")
// answer 500.
func (f *Fake) FailNext(route string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[route] = n
}

// Calls returns how many requests hit route.
func (f *Fake) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// LastCreate returns the body of the most recent POST /tests.
func (f *Fake) LastCreate() model.CreateTestRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCreate
}

// LastUpdate returns the body of the most recent PUT /tests/{id}.
func (f *Fake) LastUpdate() model.UpdateTestRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpdate
}

// track counts the call and reports whether it should fail.
func (f *Fake) track(c *gin.Context) bool {
	route := c.Request.Method + " " + c.FullPath()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[route]++
	if f.fail[route] > 0 {
		f.fail[route]--
		c.JSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
		return true
	}
	return false
}

func (f *Fake) getUser(c *gin.Context) {
	if f.track(c) {
		return
	}
	f.mu.Lock()
	u, ok := f.users[model.ChatID(c.Param("chat_id"))]
	f.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": u})
}

func (f *Fake) listTests(c *gin.Context) {
	if f.track(c) {
		return
	}
	owner := model.ChatID(c.Param("chat_id"))

	f.mu.Lock()
	list := make([]model.Test, 0, len(f.tests))
	for _, t := range f.tests {
		if owner != "" && t.OwnerChatID != owner {
			continue
		}
		list = append(list, t)
	}
	f.mu.Unlock()

	// Deliberately unsorted-looking: newest first.
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (f *Fake) createTest(c *gin.Context) {
	if f.track(c) {
		return
	}
	var req model.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f.mu.Lock()
	now := time.Now().UTC()
	t := model.Test{
		ID:          f.nextID,
		Name:        req.Name,
		OwnerChatID: req.OwnerChatID,
		TestCount:   req.TestCount,
		Answers:     req.Answers,
		IsActive:    true,
		CreatedAt:   &now,
	}
	if req.IsPrivate != nil {
		t.IsPrivate = *req.IsPrivate
	}
	f.nextID++
	f.tests[t.ID] = t
	f.lastCreate = req
	f.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"data": t})
}

func (f *Fake) updateTest(c *gin.Context) {
	if f.track(c) {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	var req model.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tests[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
		return
	}
	t.Name = req.Name
	t.TestCount = req.TestCount
	t.Answers = req.Answers
	t.IsActive = req.IsActive
	t.IsPrivate = req.IsPrivate
	f.tests[id] = t
	f.lastUpdate = req
	c.JSON(http.StatusOK, gin.H{"data": t})
}

func (f *Fake) deleteTest(c *gin.Context) {
	if f.track(c) {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad id"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tests[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
		return
	}
	delete(f.tests, id)
	c.Status(http.StatusNoContent)
}
