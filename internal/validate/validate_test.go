package validate

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireInvalid(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validate.Error, got %T", err)
	assert.True(t, strings.HasPrefix(err.Error(), "Invalid data"), err.Error())
	if contains != "" {
		assert.Contains(t, err.Error(), contains)
	}
}

func TestRowID(t *testing.T) {
	tests := []struct {
		in      string
		want    RowID
		wantErr bool
	}{
		{in: `"new"`, want: NewRow()},
		{in: `7`, want: Existing(7)},
		{in: `"7"`, wantErr: true},
		{in: `0`, wantErr: true},
		{in: `-3`, wantErr: true},
		{in: `1.5`, wantErr: true},
		{in: `"old"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id RowID
			err := json.Unmarshal([]byte(tt.in), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	b, err := json.Marshal(NewRow())
	require.NoError(t, err)
	assert.Equal(t, `"new"`, string(b))
	b, err = json.Marshal(Existing(12))
	require.NoError(t, err)
	assert.Equal(t, `12`, string(b))
}

func TestDecodeClient(t *testing.T) {
	c, err := DecodeClient(strings.NewReader(`{
		"id": "new",
		"name": " Acme ",
		"employees": [
			{"email": "A@X.com", "name": "A", "title": null},
			{"email": "b@x.com", "name": "B", "title": "CTO"}
		]
	}`))
	require.NoError(t, err)
	assert.True(t, c.ID.New)
	assert.Equal(t, "Acme", c.Name)
	require.Len(t, c.Employees, 2)
	assert.Equal(t, "a@x.com", c.Employees[0].Email)
	assert.Nil(t, c.Employees[0].Title)
	require.NotNil(t, c.Employees[1].Title)
	assert.Equal(t, "CTO", *c.Employees[1].Title)
}

func TestDecodeClientInvalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"empty body", ``, "empty body"},
		{"missing id", `{"name":"Acme","employees":[]}`, "id is required"},
		{"bad id", `{"id":"old","name":"Acme","employees":[]}`, "id must be"},
		{"name not string", `{"id":1,"name":5,"employees":[]}`, "name must be"},
		{"blank name", `{"id":1,"name":"  ","employees":[]}`, "name must not be empty"},
		{"missing employees", `{"id":1,"name":"Acme"}`, "employees is required"},
		{"bad email", `{"id":1,"name":"Acme","employees":[{"email":"nope","name":"A"}]}`, "valid email"},
		{"missing employee name", `{"id":1,"name":"Acme","employees":[{"email":"a@x.com"}]}`, "name is required"},
		{"duplicate email", `{"id":1,"name":"Acme","employees":[{"email":"a@x.com","name":"A"},{"email":"A@x.com","name":"A"}]}`, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClient(strings.NewReader(tt.body))
			requireInvalid(t, err, tt.contains)
		})
	}
}

func TestDecodeAdmins(t *testing.T) {
	admins, err := DecodeAdmins(strings.NewReader(`{"admins":[{"id":"new","name":"Ann","email":"ann@x.com"},{"id":4,"email":"bob@x.com"}]}`))
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.True(t, admins[0].ID.New)
	assert.Equal(t, "Ann", admins[0].Name)
	assert.Equal(t, Existing(4), admins[1].ID)

	_, err = DecodeAdmins(strings.NewReader(`{"admins":[{"id":"new","email":"bad"}]}`))
	requireInvalid(t, err, "valid email")

	_, err = DecodeAdmins(strings.NewReader(`{}`))
	requireInvalid(t, err, "admins is required")
}

func TestDecodeSummary(t *testing.T) {
	_, err := DecodeSummary(strings.NewReader(`{"id":5}`))
	requireInvalid(t, err, "description or roadmap")

	s, err := DecodeSummary(strings.NewReader(`{"id":5,"roadmap":"## Q3"}`))
	require.NoError(t, err)
	assert.Equal(t, uint(5), s.ID)
	assert.Nil(t, s.Description)
	require.NotNil(t, s.Roadmap)
	assert.Equal(t, "## Q3", *s.Roadmap)

	_, err = DecodeSummary(strings.NewReader(`{"description":"x"}`))
	requireInvalid(t, err, "id is required")
}

func TestDecodeUpdate(t *testing.T) {
	u, err := DecodeUpdate(strings.NewReader(`{"id":"new","projectId":3,"title":"Kickoff","body":"We met."}`))
	require.NoError(t, err)
	assert.True(t, u.ID.New)
	assert.Equal(t, uint(3), u.ProjectID)
	assert.Equal(t, "Kickoff", u.Title)

	_, err = DecodeUpdate(strings.NewReader(`{"id":"new","projectId":"3","title":"Kickoff","body":""}`))
	requireInvalid(t, err, "projectId")

	_, err = DecodeUpdate(strings.NewReader(`{"id":"new","projectId":3,"title":"","body":""}`))
	requireInvalid(t, err, "title")
}

func TestDecodeProject(t *testing.T) {
	p, err := DecodeProject(strings.NewReader(`{"id":"new"}`))
	require.NoError(t, err)
	assert.True(t, p.ID.New)

	p, err = DecodeProject(strings.NewReader(`{"id":9,"name":"Site","clientId":2,"team":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, Existing(9), p.ID)
	require.NotNil(t, p.ClientID)
	assert.Equal(t, uint(2), *p.ClientID)
	assert.Equal(t, []uint{1, 2}, p.Team)

	_, err = DecodeProject(strings.NewReader(`{"id":9}`))
	requireInvalid(t, err, "name is required")
}

func TestDecodeIDAndUploadToken(t *testing.T) {
	id, err := DecodeID(strings.NewReader(`{"id":12}`))
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	_, err = DecodeID(strings.NewReader(`{"id":"new"}`))
	requireInvalid(t, err, "")

	tok, err := DecodeUploadToken(strings.NewReader(`{"projectId":1,"fileName":"logo.png"}`))
	require.NoError(t, err)
	assert.Equal(t, "logo.png", tok.FileName)

	_, err = DecodeUploadToken(strings.NewReader(`{"projectId":1}`))
	requireInvalid(t, err, "fileName is required")
}

func TestDecodeLoginAndParseID(t *testing.T) {
	email, err := DecodeLogin(strings.NewReader(`{"email":"Ada@X.com"}`))
	require.NoError(t, err)
	assert.Equal(t, "ada@x.com", email)

	_, err = DecodeLogin(strings.NewReader(`{"email":"nope"}`))
	requireInvalid(t, err, "email must be a valid email")

	id, err := ParseID("projectId", "7")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	for _, raw := range []string{"", "0", "-1", "abc"} {
		_, err := ParseID("id", raw)
		requireInvalid(t, err, "id must be a positive number")
	}
}
