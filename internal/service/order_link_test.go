package service_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/model"
	"github.com/iyhunko/product-catalog/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderLinks(phone, symbol string) *service.OrderLinks {
	return service.NewOrderLinks(config.Order{PhoneNumber: phone, CurrencySymbol: symbol})
}

func TestNewOrderLinks(t *testing.T) {
	assert.Nil(t, orderLinks("", "₦"))
	assert.Nil(t, orderLinks("n/a", "₦"))
	assert.NotNil(t, orderLinks("+234 801-234-5678", "₦"))
	// Arabic-Indic digits are not valid in a wa.me path
	assert.Nil(t, orderLinks("٠١٢٣٤٥", "₦"))

	links := orderLinks("+234 ٨01 234 5678", "₦")
	require.NotNil(t, links)
	assert.True(t, strings.HasPrefix(links.For(&model.Product{Name: "Phone X"}), "https://wa.me/234012345678?"))
}

func TestOrderLinks_Message(t *testing.T) {
	links := orderLinks("2348012345678", "₦")

	tests := []struct {
		price float64
		want  string
	}{
		{price: 150000, want: "Hi! I'm interested in the Phone X for ₦150,000. Is it available?"},
		{price: 99.5, want: "Hi! I'm interested in the Phone X for ₦99.5. Is it available?"},
		{price: 0, want: "Hi! I'm interested in the Phone X for ₦0. Is it available?"},
	}
	for _, tt := range tests {
		got := links.Message(&model.Product{Name: "Phone X", Price: tt.price})
		assert.Equal(t, tt.want, got)
	}
}

func TestOrderLinks_For(t *testing.T) {
	links := orderLinks("+234 801-234-5678", "₦")
	product := &model.Product{Name: "Phone X & Case", Price: 150000}

	link := links.For(product)

	prefix := "https://wa.me/2348012345678?text="
	require.True(t, strings.HasPrefix(link, prefix), link)
	text := strings.TrimPrefix(link, prefix)
	assert.NotContains(t, text, "+")
	assert.NotContains(t, text, " ")
	assert.NotContains(t, text, "&")

	decoded, err := url.QueryUnescape(text)
	require.NoError(t, err)
	assert.Equal(t, links.Message(product), decoded)
}
