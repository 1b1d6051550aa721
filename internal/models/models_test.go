package models_test

import (
	"testing"

	"cardanocart/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPassword(t *testing.T) {
	user := &models.User{}
	require.NoError(t, user.SetPassword("s3cret-pass"))

	assert.NotEqual(t, "s3cret-pass", user.Password)
	assert.True(t, user.CheckPassword("s3cret-pass"))
	assert.False(t, user.CheckPassword("wrong"))

	federated := &models.User{}
	assert.False(t, federated.CheckPassword(""))
}

func TestUserCanAuthenticate(t *testing.T) {
	assert.True(t, (&models.User{IsActive: true}).CanAuthenticate())
	assert.False(t, (&models.User{IsActive: false}).CanAuthenticate())
	assert.False(t, (&models.User{IsActive: true, IsDeleted: true}).CanAuthenticate())
}

func TestJSONMapRoundTrip(t *testing.T) {
	specs := models.JSONMap{"color": "red", "weight": 1.5}
	value, err := specs.Value()
	require.NoError(t, err)

	var scanned models.JSONMap
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, "red", scanned["color"])
	assert.Equal(t, 1.5, scanned["weight"])

	var fromBytes models.JSONMap
	require.NoError(t, fromBytes.Scan([]byte(`{"a":1}`)))
	assert.Equal(t, float64(1), fromBytes["a"])

	var empty models.JSONMap
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)

	assert.Error(t, empty.Scan(42))
}

func TestDeriveCategoryName(t *testing.T) {
	p := &models.Product{}
	p.DeriveCategoryName()
	assert.Nil(t, p.CategoryName)

	p.Subcategory = &models.Subcategory{Name: "Laptops", Category: &models.Category{Name: "Electronics"}}
	p.DeriveCategoryName()
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Electronics", *p.CategoryName)
}

func TestRoleAndStatusValid(t *testing.T) {
	assert.True(t, models.RoleAdmin.Valid())
	assert.False(t, models.Role("root").Valid())
	assert.True(t, models.OrderStatusShipped.Valid())
	assert.False(t, models.OrderStatus("lost").Valid())
}
