package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnswerListDecodesArrayAndString(t *testing.T) {
	var fromArray, fromString AnswerList
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"answer":"A"},{"id":2,"answer":"B"}]`), &fromArray))
	require.NoError(t, json.Unmarshal([]byte(`"[{\"id\":1,\"answer\":\"A\"},{\"id\":2,\"answer\":\"B\"}]"`), &fromString))

	require.Equal(t, fromArray, fromString)
	require.Equal(t, []string{"A", "B"}, fromArray.Values())
}

func TestAnswerListNullAndEmpty(t *testing.T) {
	var l AnswerList
	require.NoError(t, json.Unmarshal([]byte(`null`), &l))
	require.Nil(t, l)
	require.NoError(t, json.Unmarshal([]byte(`""`), &l))
	require.Nil(t, l)
	require.Error(t, json.Unmarshal([]byte(`"not json"`), &l))
}

func TestOrderedUndoesReversedStorage(t *testing.T) {
	// Stored reversed with ids count-index.
	stored := AnswerList{{ID: 3, Answer: "C"}, {ID: 2, Answer: "B"}, {ID: 1, Answer: "A"}}
	require.Equal(t, []string{"A", "B", "C"}, stored.Values())
	// Original slice is untouched.
	require.Equal(t, 3, stored[0].ID)
}

func TestNewAnswerListRoundTrip(t *testing.T) {
	values := []string{"a", "d", "c", "e"}
	list := NewAnswerList(values)
	require.Equal(t, Answer{ID: 1, Answer: "a"}, list[0])
	require.Equal(t, values, list.Values())
}

func TestChatIDAcceptsNumbersAndStrings(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"chat_id":123456789,"role":"admin"}`), &u))
	require.Equal(t, ChatID("123456789"), u.ChatID)
	require.True(t, u.IsAdmin())

	require.NoError(t, json.Unmarshal([]byte(`{"chat_id":"abc","role":"user"}`), &u))
	require.Equal(t, ChatID("abc"), u.ChatID)
	require.False(t, u.IsAdmin())

	out, err := json.Marshal(struct {
		A ChatID `json:"a"`
		B ChatID `json:"b"`
	}{"42", "abc"})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":42,"b":"abc"}`, string(out))
}

func TestCreateRequestDefaultsPrivateToFalse(t *testing.T) {
	req := CreateTestRequest{Name: "x", TestCount: 1}.WithDefaults()
	require.NotNil(t, req.IsPrivate)
	require.False(t, *req.IsPrivate)
	require.NotNil(t, req.Answers)

	private := true
	req = CreateTestRequest{IsPrivate: &private}.WithDefaults()
	require.True(t, *req.IsPrivate)
}

func TestTestDecodesAPIRecord(t *testing.T) {
	raw := `{"id":7,"name":"Math","owner_chat_id":99,"test_count":2,
		"answers_json":"[{\"id\":2,\"answer\":\"B\"},{\"id\":1,\"answer\":\"A\"}]",
		"checked":4,"is_active":true,"is_private":false,"is_deleted":false,
		"created_at":"2025-01-02T03:04:05Z"}`
	var tst Test
	require.NoError(t, json.Unmarshal([]byte(raw), &tst))
	require.Equal(t, 7, tst.ID)
	require.Equal(t, ChatID("99"), tst.OwnerChatID)
	require.Equal(t, []string{"A", "B"}, tst.Answers.Values())
	require.NotNil(t, tst.CreatedAt)
}
