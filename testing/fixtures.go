package testing

import (
	"fmt"
	"strings"

	"github.com/amirphl/parts-pricing/models"
	"github.com/amirphl/parts-pricing/utils"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestPart inserts a part. Unset code and prices are filled with fake values.
func (tf *TestFixtures) CreateTestPart(p models.Part) (*models.Part, error) {
	if p.Code == "" {
		p.Code = fmt.Sprintf("GH%s-%05d", strings.ToUpper(gofakeit.LetterN(2)), gofakeit.Number(0, 99999))
	}
	if p.Status == "" {
		p.Status = models.PartStatusActive
	}
	if p.MapPrice == nil {
		p.MapPrice = utils.ToPtr(gofakeit.Price(1, 500))
	}
	if p.StockQty == nil {
		p.StockQty = utils.ToPtr(gofakeit.Number(0, 20))
	}
	if err := tf.DB.DB.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create test part: %w", err)
	}
	return &p, nil
}

// CreateTestFormula inserts a formula; an empty class name gets a fake one.
func (tf *TestFixtures) CreateTestFormula(f models.Formula) (*models.Formula, error) {
	if f.ClassName == "" {
		f.ClassName = gofakeit.ProductCategory()
	}
	if f.ExchangeRate == 0 {
		f.ExchangeRate = models.DefaultExchangeRate
	}
	if err := tf.DB.DB.Create(&f).Error; err != nil {
		return nil, fmt.Errorf("failed to create test formula: %w", err)
	}
	return &f, nil
}

func (tf *TestFixtures) CreateTestDeviceModel(name, code, category string) (*models.DeviceModel, error) {
	m := models.DeviceModel{
		Brand:     models.DefaultBrand,
		ModelName: name,
		ModelCode: utils.NilIfBlank(code),
		Category:  utils.NilIfBlank(category),
	}
	if err := tf.DB.DB.Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create test device model: %w", err)
	}
	return &m, nil
}

// CreateTestUser inserts an active user whose password is TestPassword
func (tf *TestFixtures) CreateTestUser(role string, perms ...string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := models.User{
		UUID:         uuid.New(),
		Username:     strings.ToLower(gofakeit.Username()) + gofakeit.DigitN(4),
		PasswordHash: string(hash),
		Role:         role,
		Permissions:  strings.Join(perms, ","),
		IsActive:     utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return &u, nil
}
