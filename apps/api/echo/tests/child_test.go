package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tulia/core/avatar"
	"github.com/trezcool/tulia/core/child"
	"github.com/trezcool/tulia/tests"
)

func Test_childApi_create(t *testing.T) {
	e := setup(t)

	t.Run("valid registration", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/v1/children", []byte(`{
			"name": "  Amani ", "age": 9, "gender": "Female", "autism_support_level": 2,
			"parent": {"name": "Neema", "email": "Neema@Example.com", "camera_permission": true}
		}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var reg child.Registration
		unmarshal(t, rec, &reg)
		assert.NotEmpty(t, reg.Child.ID)
		assert.Equal(t, "Amani", reg.Child.Name)
		assert.Equal(t, 1, reg.Child.CurrentLevel)
		require.NotNil(t, reg.Child.Avatar)
		assert.Equal(t, avatar.Default(reg.Child.ID), *reg.Child.Avatar)
		assert.Equal(t, reg.Child.ID, reg.Parent.ChildID)
		assert.Equal(t, "neema@example.com", reg.Parent.Email)
		assert.True(t, reg.Parent.CameraPermission)
		assert.False(t, reg.Parent.MicPermission)
	})

	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{name: "empty", body: `{}`, wantFields: []string{"name", "age", "gender", "autism_support_level", "email"}},
		{name: "blank name", body: `{"name": "  ", "age": 9, "gender": "Male", "autism_support_level": 1, "parent": {"name": "P", "email": "p@test.cd"}}`, wantFields: []string{"name"}},
		{name: "too young", body: `{"name": "A", "age": 6, "gender": "Male", "autism_support_level": 1, "parent": {"name": "P", "email": "p@test.cd"}}`, wantFields: []string{"age"}},
		{name: "too old", body: `{"name": "A", "age": 13, "gender": "Male", "autism_support_level": 1, "parent": {"name": "P", "email": "p@test.cd"}}`, wantFields: []string{"age"}},
		{name: "bad gender", body: `{"name": "A", "age": 8, "gender": "male", "autism_support_level": 1, "parent": {"name": "P", "email": "p@test.cd"}}`, wantFields: []string{"gender"}},
		{name: "bad support level", body: `{"name": "A", "age": 8, "gender": "Other", "autism_support_level": 4, "parent": {"name": "P", "email": "p@test.cd"}}`, wantFields: []string{"autism_support_level"}},
		{name: "bad email", body: `{"name": "A", "age": 8, "gender": "Other", "autism_support_level": 1, "parent": {"name": "P", "email": "nope"}}`, wantFields: []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/v1/children", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var fields map[string]string
			unmarshal(t, rec, &fields)
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func Test_childApi_detail(t *testing.T) {
	e := setup(t)
	chld := testutil.CreateChild(t, e.childRepo, "Baraka", 10, 1)
	parent := testutil.CreateParent(t, e.childRepo, chld.ID, "Zawadi", "zawadi@test.cd")
	path := "/v1/children/" + chld.ID

	withAvatar := chld
	cfg := avatar.Default(chld.ID)
	withAvatar.Avatar = &cfg

	notFound := marchallObj(t, httpErr{Error: "child not found"})
	runHttpTests(t, e, []httpTest{
		{name: "retrieve", method: http.MethodGet, path: path, wantCode: http.StatusOK, wantData: marchallObj(t, withAvatar)},
		{name: "unknown child", method: http.MethodGet, path: "/v1/children/nope", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "parents", method: http.MethodGet, path: path + "/parents", wantCode: http.StatusOK, wantData: marchallList(t, parent)},
		{name: "default avatar", method: http.MethodGet, path: path + "/avatar", wantCode: http.StatusOK, wantData: marchallObj(t, cfg)},
	})

	t.Run("update level & avatar", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, path, []byte(`{"current_level": 2, "avatar": {"style": " Bottts ", "colors": {"primary": "#FF0000"}}}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got child.Child
		unmarshal(t, rec, &got)
		assert.Equal(t, 2, got.CurrentLevel)
		require.NotNil(t, got.Avatar)
		assert.Equal(t, "bottts", got.Avatar.Style)
		assert.Equal(t, "#ff0000", got.Avatar.Colors.Primary)
		assert.Equal(t, avatar.DefaultSecondaryColor, got.Avatar.Colors.Secondary)
	})

	t.Run("invalid update", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, path, []byte(`{"current_level": 4}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = e.do(t, http.MethodPut, path+"/avatar", []byte(`{"colors": {"secondary": "blue"}}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update avatar", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, path+"/avatar", []byte(`{"seed": "star", "enhancements": {"level1": ["crown"], "level2": [], "level3": []}}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got avatar.Config
		unmarshal(t, rec, &got)
		assert.Equal(t, "star", got.Seed)
		assert.Equal(t, []string{"crown"}, got.Enhancements.Level1)
		assert.Equal(t, "bottts", got.Style)
	})

	t.Run("delete", func(t *testing.T) {
		rec := e.do(t, http.MethodDelete, path)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = e.do(t, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	e := setup(t)
	runHttpTests(t, e, []httpTest{
		{name: "health", method: http.MethodGet, path: "/health", wantCode: http.StatusOK, wantData: []byte(`{"ok":true}`)},
	})
}
