package service

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/stoa-market/stoa-market-api/internal/models"
	"github.com/stoa-market/stoa-market-api/internal/repository"
)

// Scoring weights for detail-page related items.
const (
	relatedLimit          = 4
	relatedSameCategory   = 10.0
	relatedSameGender     = 2.0
	relatedPurchaseWeight = 2.0
	relatedFavoriteWeight = 1.0
)

// Scoring weights for personalized recommendations.
const (
	recommendLimit         = 5
	affinityPurchaseWeight = 3.0
	affinityFavoriteWeight = 1.0
	categoryMatchBonus     = 2.0
	sizeMatchBonus         = 1.0
	genderMatchBonus       = 0.8
	priceInsideBonus       = 1.2
	priceWidenedBonus      = 0.6
	priceSingleBoundBonus  = 0.8
	favoriteFallbackBonus  = 1.0
)

// RecommendFilter narrows personalized recommendations. Nil price bounds
// mean "no bound".
type RecommendFilter struct {
	Size     string
	Gender   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// RecommendationService ranks catalog products against a viewer's purchase
// and favorite history. It reads from the catalog, ledger and favorites and
// writes nothing. Ties are broken by shuffling equal-score runs with a
// seedable random source so tests can pin a permutation.
type RecommendationService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	favorites repository.FavoriteRepository
	log       *logrus.Entry

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRecommendationService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	favorites repository.FavoriteRepository,
	rng *rand.Rand,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		products:  products,
		orders:    orders,
		favorites: favorites,
		rng:       rng,
		log:       logger.WithField("component", "recommendation-service"),
	}
}

type scoredProduct struct {
	product *models.Product
	score   float64
}

// RelatedProducts ranks up to four in-stock products shown on a product's
// detail page. Candidates exclude the viewed product itself, the viewer's
// own listings and anything the viewer already purchased.
func (s *RecommendationService) RelatedProducts(ctx context.Context, productID, viewerID int64) ([]models.Recommendation, error) {
	base, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.products.List(ctx, models.ProductFilter{InStock: true})
	if err != nil {
		return nil, err
	}

	purchased := map[int64]bool{}
	purchaseByCategory := map[string]float64{}
	favoriteByCategory := map[string]float64{}
	if viewerID != 0 {
		history, err := s.orders.ListPurchasedProducts(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		for _, p := range history {
			purchased[p.ID] = true
			purchaseByCategory[normalizeCategory(p.Category)]++
		}
		favs, err := s.favorites.ListAllProducts(ctx, viewerID)
		if err != nil {
			return nil, err
		}
		for _, p := range favs {
			favoriteByCategory[normalizeCategory(p.Category)]++
		}
	}

	scored := make([]scoredProduct, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == base.ID || c.SellerID == viewerID || purchased[c.ID] {
			continue
		}
		cat := normalizeCategory(c.Category)
		score := relatedPurchaseWeight*purchaseByCategory[cat] + relatedFavoriteWeight*favoriteByCategory[cat]
		if c.Category == base.Category {
			score += relatedSameCategory
		}
		if c.Gender == base.Gender {
			score += relatedSameGender
		}
		if score > 0 {
			scored = append(scored, scoredProduct{product: c, score: score})
		}
	}

	s.sortWithTieShuffle(scored)
	if len(scored) > relatedLimit {
		scored = scored[:relatedLimit]
	}
	return toRecommendations(scored), nil
}

// FilteredRecommendations ranks up to five in-stock products for an
// authenticated viewer, blending category affinity from purchase and
// favorite history with the supplied attribute filters. Under-filled
// results fall back first to favorited-but-unpurchased products and then to
// uniformly random in-stock products, so the list is only ever shorter than
// five when the whole catalog runs out of eligible candidates.
func (s *RecommendationService) FilteredRecommendations(ctx context.Context, viewerID int64, filter RecommendFilter) ([]models.Recommendation, error) {
	if viewerID == 0 {
		return []models.Recommendation{}, nil
	}

	history, err := s.orders.ListPurchasedProducts(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	favs, err := s.favorites.ListAllProducts(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	purchased := map[int64]bool{}
	affinity := map[string]float64{}
	for _, p := range history {
		purchased[p.ID] = true
		affinity[normalizeCategory(p.Category)] += affinityPurchaseWeight
	}
	favorited := map[int64]bool{}
	for _, p := range favs {
		favorited[p.ID] = true
		affinity[normalizeCategory(p.Category)] += affinityFavoriteWeight
	}

	inStock, err := s.products.List(ctx, models.ProductFilter{InStock: true})
	if err != nil {
		return nil, err
	}

	scored := make([]scoredProduct, 0, len(inStock))
	for _, c := range inStock {
		if purchased[c.ID] || favorited[c.ID] {
			continue
		}
		if score := s.scoreCandidate(c, affinity, filter); score > 0 {
			scored = append(scored, scoredProduct{product: c, score: score})
		}
	}

	s.sortWithTieShuffle(scored)
	if len(scored) > recommendLimit {
		scored = scored[:recommendLimit]
	}

	// Fallback tier 1: favorited-but-unpurchased products come back with a
	// flat bonus.
	if len(scored) < recommendLimit {
		taken := takenIDs(scored)
		tier := make([]scoredProduct, 0)
		for _, c := range inStock {
			if !favorited[c.ID] || purchased[c.ID] || taken[c.ID] {
				continue
			}
			tier = append(tier, scoredProduct{
				product: c,
				score:   s.scoreCandidate(c, affinity, filter) + favoriteFallbackBonus,
			})
		}
		s.sortWithTieShuffle(tier)
		for _, sp := range tier {
			if len(scored) == recommendLimit {
				break
			}
			scored = append(scored, sp)
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	}

	// Fallback tier 2: pad with uniformly random in-stock products at
	// score zero.
	if len(scored) < recommendLimit {
		taken := takenIDs(scored)
		rest := make([]*models.Product, 0)
		for _, c := range inStock {
			if !taken[c.ID] {
				rest = append(rest, c)
			}
		}
		s.shuffleProducts(rest)
		for _, c := range rest {
			if len(scored) == recommendLimit {
				break
			}
			scored = append(scored, scoredProduct{product: c, score: 0})
		}
	}

	return toRecommendations(scored), nil
}

func (s *RecommendationService) scoreCandidate(c *models.Product, affinity map[string]float64, filter RecommendFilter) float64 {
	score := affinity[normalizeCategory(c.Category)]
	if filter.Category != "" && c.Category == filter.Category {
		score += categoryMatchBonus
	}
	if filter.Size != "" && c.Size == filter.Size {
		score += sizeMatchBonus
	}
	if filter.Gender != "" && c.Gender == filter.Gender {
		score += genderMatchBonus
	}
	score += priceBandBonus(c.Price, filter.MinPrice, filter.MaxPrice)
	return score
}

// priceBandBonus rewards prices inside the requested band, with partial
// credit for a band widened by 20% on each side. A single bound scores a
// flat bonus for satisfying it alone.
func priceBandBonus(price decimal.Decimal, min, max *decimal.Decimal) float64 {
	switch {
	case min != nil && max != nil:
		if price.GreaterThanOrEqual(*min) && price.LessThanOrEqual(*max) {
			return priceInsideBonus
		}
		widenedMin := min.Mul(decimal.NewFromFloat(0.8))
		widenedMax := max.Mul(decimal.NewFromFloat(1.2))
		if price.GreaterThanOrEqual(widenedMin) && price.LessThanOrEqual(widenedMax) {
			return priceWidenedBonus
		}
	case min != nil:
		if price.GreaterThanOrEqual(*min) {
			return priceSingleBoundBonus
		}
	case max != nil:
		if price.LessThanOrEqual(*max) {
			return priceSingleBoundBonus
		}
	}
	return 0
}

// sortWithTieShuffle orders by score descending, shuffling each run of
// equal scores so ties don't degenerate into id order.
func (s *RecommendationService) sortWithTieShuffle(scored []scoredProduct) {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	s.mu.Lock()
	defer s.mu.Unlock()
	i := 0
	for i < len(scored) {
		j := i + 1
		for j < len(scored) && scored[j].score == scored[i].score {
			j++
		}
		if j-i > 1 {
			run := scored[i:j]
			s.rng.Shuffle(len(run), func(a, b int) { run[a], run[b] = run[b], run[a] })
		}
		i = j
	}
}

func (s *RecommendationService) shuffleProducts(products []*models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(products), func(a, b int) { products[a], products[b] = products[b], products[a] })
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

func takenIDs(scored []scoredProduct) map[int64]bool {
	taken := make(map[int64]bool, len(scored))
	for _, sp := range scored {
		taken[sp.product.ID] = true
	}
	return taken
}

func toRecommendations(scored []scoredProduct) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(scored))
	for _, sp := range scored {
		recs = append(recs, models.Recommendation{
			ProductID: sp.product.ID,
			Title:     sp.product.Title,
			Price:     sp.product.Price,
			ImageURL:  sp.product.MainImageURL(),
			Score:     sp.score,
		})
	}
	return recs
}
