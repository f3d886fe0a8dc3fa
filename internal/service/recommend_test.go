package service

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoa-market/stoa-market-api/internal/models"
)

func newRecommendFixture(t *testing.T, seed int64, products ...*models.Product) (*RecommendationService, *fakeOrderRepo, *fakeFavoriteRepo) {
	t.Helper()

	productRepo := newFakeProductRepo(products...)
	orders := newFakeOrderRepo(productRepo)
	favorites := newFakeFavoriteRepo(productRepo)
	svc := NewRecommendationService(productRepo, orders, favorites, rand.New(rand.NewSource(seed)), testLogger())
	return svc, orders, favorites
}

func recommendationIDs(recs []models.Recommendation) []int64 {
	ids := make([]int64, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ProductID)
	}
	return ids
}

func TestRelatedProducts_AttributeWeights(t *testing.T) {
	svc, _, _ := newRecommendFixture(t, 1,
		&models.Product{ID: 1, SellerID: 2, Title: "Base dress", Category: "Dresses", Gender: "Women", Quantity: 1},
		&models.Product{ID: 2, SellerID: 3, Title: "Twin dress", Category: "Dresses", Gender: "Women", Quantity: 1},
		&models.Product{ID: 3, SellerID: 3, Title: "Men's dress shirt", Category: "Dresses", Gender: "Men", Quantity: 1},
		&models.Product{ID: 4, SellerID: 3, Title: "Heels", Category: "Shoes", Gender: "Women", Quantity: 1},
		&models.Product{ID: 5, SellerID: 3, Title: "Loafers", Category: "Shoes", Gender: "Men", Quantity: 1},
	)

	recs, err := svc.RelatedProducts(context.Background(), 1, 0)
	require.NoError(t, err)

	// Same category+gender 12, same category 10, same gender 2; a product
	// matching nothing scores zero and is dropped.
	require.Len(t, recs, 3)
	assert.Equal(t, []int64{2, 3, 4}, recommendationIDs(recs))
	assert.Equal(t, 12.0, recs[0].Score)
	assert.Equal(t, 10.0, recs[1].Score)
	assert.Equal(t, 2.0, recs[2].Score)
}

func TestRelatedProducts_HistoryAffinityAndExclusions(t *testing.T) {
	svc, orders, favorites := newRecommendFixture(t, 1,
		&models.Product{ID: 1, SellerID: 2, Title: "Base dress", Category: "Dresses", Gender: "Women", Quantity: 1},
		&models.Product{ID: 4, SellerID: 3, Title: "Heels", Category: "Shoes", Gender: "Women", Quantity: 1},
		&models.Product{ID: 6, SellerID: 7, Title: "Own dress", Category: "Dresses", Gender: "Women", Quantity: 1},
		&models.Product{ID: 7, SellerID: 3, Title: "Bought dress", Category: "Dresses", Gender: "Women", Quantity: 1},
		&models.Product{ID: 9, SellerID: 3, Title: "Favorite sneakers", Category: "Shoes", Gender: "Women", Quantity: 1},
	)
	orders.purchases[7] = []*models.Product{
		{ID: 7, Category: "Dresses"},
		{ID: 8, Category: "Shoes"},
	}
	favorites.add(7, 9)

	recs, err := svc.RelatedProducts(context.Background(), 1, 7)
	require.NoError(t, err)

	// The viewer's own listing (6) and the already-bought dress (7) are
	// excluded. Heels and the favorite sneakers both score gender 2 +
	// purchase affinity 2 + favorite affinity 1 = 5.
	require.Len(t, recs, 2)
	assert.ElementsMatch(t, []int64{4, 9}, recommendationIDs(recs))
	for _, r := range recs {
		assert.Equal(t, 5.0, r.Score)
	}
}

func TestRelatedProducts_CapsAtFour(t *testing.T) {
	products := []*models.Product{
		{ID: 1, SellerID: 2, Title: "Base", Category: "Dresses", Gender: "Women", Quantity: 1},
	}
	for id := int64(2); id <= 8; id++ {
		products = append(products, &models.Product{
			ID: id, SellerID: 3, Title: "Dress", Category: "Dresses", Gender: "Women", Quantity: 1,
		})
	}
	svc, _, _ := newRecommendFixture(t, 1, products...)

	recs, err := svc.RelatedProducts(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestRelatedProducts_TieShuffleIsSeedStable(t *testing.T) {
	build := func(seed int64) []int64 {
		products := []*models.Product{
			{ID: 1, SellerID: 2, Title: "Base", Category: "Dresses", Gender: "Women", Quantity: 1},
		}
		for id := int64(2); id <= 10; id++ {
			products = append(products, &models.Product{
				ID: id, SellerID: 3, Title: "Dress", Category: "Dresses", Gender: "Women", Quantity: 1,
			})
		}
		svc, _, _ := newRecommendFixture(t, seed, products...)
		recs, err := svc.RelatedProducts(context.Background(), 1, 0)
		require.NoError(t, err)
		return recommendationIDs(recs)
	}

	assert.Equal(t, build(42), build(42), "same seed, same permutation")
}

func TestFilteredRecommendations_AnonymousGetsNothing(t *testing.T) {
	svc, _, _ := newRecommendFixture(t, 1,
		&models.Product{ID: 1, SellerID: 2, Title: "Dress", Category: "Dresses", Quantity: 1},
	)

	recs, err := svc.FilteredRecommendations(context.Background(), 0, RecommendFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFilteredRecommendations_AffinityAndFallbacks(t *testing.T) {
	svc, orders, favorites := newRecommendFixture(t, 1,
		&models.Product{ID: 1, SellerID: 2, Title: "Running shoes", Category: "Shoes", Quantity: 1},
		&models.Product{ID: 2, SellerID: 2, Title: "Tote bag", Category: "Bags", Quantity: 1},
		&models.Product{ID: 3, SellerID: 2, Title: "Parka", Category: "Coats", Quantity: 1},
		&models.Product{ID: 10, SellerID: 3, Title: "Bought boots", Category: "Shoes", Quantity: 0},
		&models.Product{ID: 11, SellerID: 3, Title: "Favorite clutch", Category: "Bags", Quantity: 1},
	)
	orders.purchases[7] = []*models.Product{{ID: 10, Category: "Shoes"}}
	favorites.add(7, 11)

	recs, err := svc.FilteredRecommendations(context.Background(), 7, RecommendFilter{})
	require.NoError(t, err)

	// Purchases weigh 3x into category affinity, favorites 1x. The
	// favorited clutch is excluded from the main pool but returns through
	// the first fallback tier with a flat +1; the zero-affinity parka pads
	// the list through the random tier at score zero.
	require.Len(t, recs, 4)
	assert.Equal(t, []int64{1, 11, 2, 3}, recommendationIDs(recs))
	assert.Equal(t, 3.0, recs[0].Score)
	assert.Equal(t, 2.0, recs[1].Score)
	assert.Equal(t, 1.0, recs[2].Score)
	assert.Equal(t, 0.0, recs[3].Score)
}

func TestFilteredRecommendations_FilterBonuses(t *testing.T) {
	min := price("40")
	max := price("60")
	svc, _, _ := newRecommendFixture(t, 1,
		&models.Product{ID: 1, SellerID: 2, Title: "Exact match", Category: "Dresses", Size: "M", Gender: "Women", Price: price("50"), Quantity: 1},
		&models.Product{ID: 2, SellerID: 2, Title: "Category only", Category: "Dresses", Size: "XL", Gender: "Men", Price: price("100"), Quantity: 1},
		&models.Product{ID: 3, SellerID: 2, Title: "Price only", Category: "Coats", Size: "S", Gender: "Men", Price: price("55"), Quantity: 1},
		&models.Product{ID: 4, SellerID: 2, Title: "Near band", Category: "Coats", Size: "S", Gender: "Men", Price: price("70"), Quantity: 1},
	)

	filter := RecommendFilter{
		Category: "Dresses",
		Size:     "M",
		Gender:   "Women",
		MinPrice: &min,
		MaxPrice: &max,
	}
	recs, err := svc.FilteredRecommendations(context.Background(), 7, filter)
	require.NoError(t, err)

	require.Len(t, recs, 4)
	assert.Equal(t, []int64{1, 2, 3, 4}, recommendationIDs(recs))
	assert.InDelta(t, 5.0, recs[0].Score, 1e-9) // 2 + 1 + 0.8 + 1.2
	assert.InDelta(t, 2.0, recs[1].Score, 1e-9) // category match, price outside widened band
	assert.InDelta(t, 1.2, recs[2].Score, 1e-9) // inside price band only
	assert.InDelta(t, 0.6, recs[3].Score, 1e-9) // inside the 20%-widened band
}

func TestFilteredRecommendations_ShortCatalog(t *testing.T) {
	svc, _, _ := newRecommendFixture(t, 1,
		&models.Product{ID: 1, SellerID: 2, Title: "Only dress", Category: "Dresses", Quantity: 1},
		&models.Product{ID: 2, SellerID: 2, Title: "Only coat", Category: "Coats", Quantity: 1},
	)

	recs, err := svc.FilteredRecommendations(context.Background(), 7, RecommendFilter{})
	require.NoError(t, err)

	// min(5, eligible): the whole in-stock catalog comes back via the
	// random fallback tier when the viewer has no history.
	assert.Len(t, recs, 2)
}

func TestPriceBandBonus(t *testing.T) {
	min := price("40")
	max := price("60")

	tests := []struct {
		name  string
		price decimal.Decimal
		min   *decimal.Decimal
		max   *decimal.Decimal
		want  float64
	}{
		{"inside band", price("50"), &min, &max, 1.2},
		{"widened band", price("70"), &min, &max, 0.6},
		{"outside widened band", price("100"), &min, &max, 0},
		{"min only satisfied", price("45"), &min, nil, 0.8},
		{"min only violated", price("30"), &min, nil, 0},
		{"max only satisfied", price("45"), nil, &max, 0.8},
		{"max only violated", price("80"), nil, &max, 0},
		{"no bounds", price("45"), nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, priceBandBonus(tt.price, tt.min, tt.max), 1e-9)
		})
	}
}
