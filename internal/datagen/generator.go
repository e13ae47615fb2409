package datagen

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/bankinsight/churn-insights/internal/models"
)

// cohort is a block of customers sharing the attributes that drive the
// headline statistics. Everything else is drawn from the seeded source.
type cohort struct {
	complain     bool
	satisfaction int
	balance      balanceBand
	credit       creditBand
	size         int
	churned      int
}

type balanceBand int

const (
	balanceZero balanceBand = iota
	balanceLow
	balanceMedium
	balanceHigh
	balanceVeryHigh
)

type creditBand int

const (
	creditPoor creditBand = iota
	creditFair
	creditGood
	creditVeryGood
	creditExcellent
)

// cohorts reproduce, at scale 1 over 10,000 rows: 24.4% baseline churn,
// 90% vs 15% churn for complainers vs the rest, 55% churn at satisfaction 2
// and 8% at 5, 34.7% churn in the Low balance tier and 19.9% in Medium, and a
// 10/15/75 Critical/Medium/Low risk split.
var cohorts = []cohort{
	{complain: true, satisfaction: 1, balance: balanceZero, credit: creditGood, size: 500, churned: 460},
	{complain: true, satisfaction: 2, balance: balanceZero, credit: creditGood, size: 500, churned: 455},
	{complain: true, satisfaction: 3, balance: balanceHigh, credit: creditGood, size: 250, churned: 210},
	{satisfaction: 2, balance: balanceLow, credit: creditFair, size: 500, churned: 95},
	{satisfaction: 4, balance: balanceLow, credit: creditFair, size: 500, churned: 252},
	{satisfaction: 5, balance: balanceMedium, credit: creditVeryGood, size: 1000, churned: 80},
	{satisfaction: 5, balance: balanceHigh, credit: creditVeryGood, size: 1000, churned: 80},
	{satisfaction: 3, balance: balanceMedium, credit: creditGood, size: 1000, churned: 318},
	{satisfaction: 4, balance: balanceVeryHigh, credit: creditPoor, size: 500, churned: 100},
	{satisfaction: 1, balance: balanceZero, credit: creditGood, size: 1250, churned: 150},
	{satisfaction: 3, balance: balanceHigh, credit: creditExcellent, size: 1500, churned: 120},
	{satisfaction: 4, balance: balanceZero, credit: creditGood, size: 1500, churned: 120},
}

var surnames = []string{
	"Hargrave", "Hill", "Onio", "Boni", "Mitchell", "Chu", "Bartlett", "Obinna",
	"He", "Bearce", "Andrews", "Kay", "Chin", "Scott", "Goforth", "Romeo",
	"Henderson", "Muldrow", "Hao", "McDonald", "Dellucci", "Gerasimov", "Mosman",
}

// Generator produces deterministic synthetic customer tables.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a Generator for cfg, filling zero fields from DefaultConfig.
func New(cfg Config) *Generator {
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultConfig().Scale
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultConfig().Seed
	}
	return &Generator{cfg: cfg, rand: rand.New(rand.NewSource(cfg.Seed))}
}

// Generate builds the table. The same Config always yields the same rows.
func (g *Generator) Generate() []models.Customer {
	total := 0
	for _, c := range cohorts {
		total += c.size * g.cfg.Scale
	}

	customers := make([]models.Customer, 0, total)
	for _, c := range cohorts {
		size := c.size * g.cfg.Scale
		churned := c.churned * g.cfg.Scale
		for i := 0; i < size; i++ {
			customers = append(customers, g.customer(c, i < churned))
		}
	}

	g.rand.Shuffle(len(customers), func(i, j int) {
		customers[i], customers[j] = customers[j], customers[i]
	})
	for i := range customers {
		customers[i].CustomerID = fmt.Sprintf("%d", 15565701+i)
	}
	return customers
}

func (g *Generator) customer(c cohort, exited bool) models.Customer {
	return models.Customer{
		Surname:           surnames[g.rand.Intn(len(surnames))],
		CreditScore:       g.creditScore(c.credit),
		Geography:         g.geography(),
		Gender:            []string{"Female", "Male"}[g.rand.Intn(2)],
		Age:               18 + g.rand.Intn(75),
		Tenure:            g.rand.Intn(11),
		Balance:           g.balance(c.balance),
		NumOfProducts:     1 + g.rand.Intn(4),
		HasCrCard:         g.rand.Intn(10) < 7,
		IsActiveMember:    g.rand.Intn(2) == 0,
		EstimatedSalary:   cents(11.58 + g.rand.Float64()*199980),
		SatisfactionScore: c.satisfaction,
		Complain:          c.complain,
		Exited:            exited,
	}
}

func (g *Generator) geography() string {
	switch n := g.rand.Intn(4); n {
	case 0, 1:
		return "France"
	case 2:
		return "Germany"
	default:
		return "Spain"
	}
}

func (g *Generator) creditScore(band creditBand) int {
	switch band {
	case creditPoor:
		return 350 + g.rand.Intn(151)
	case creditFair:
		return 501 + g.rand.Intn(100)
	case creditGood:
		return 601 + g.rand.Intn(100)
	case creditVeryGood:
		return 701 + g.rand.Intn(100)
	default:
		return 801 + g.rand.Intn(50)
	}
}

func (g *Generator) balance(band balanceBand) decimal.Decimal {
	switch band {
	case balanceZero:
		return decimal.Zero
	case balanceLow:
		return cents(1000 + g.rand.Float64()*48999)
	case balanceMedium:
		return cents(50001 + g.rand.Float64()*49998)
	case balanceHigh:
		return cents(100001 + g.rand.Float64()*49998)
	default:
		return cents(150001 + g.rand.Float64()*100000)
	}
}

func cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
