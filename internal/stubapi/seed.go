package stubapi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
)

// Seed is the initial data loaded into a server.
type Seed struct {
	Foods []SeedFood `yaml:"foods"`
	Users []SeedUser `yaml:"users"`
}

// SeedFood is a catalog or override record.
type SeedFood struct {
	Barcode     string  `yaml:"barcode"`
	Name        string  `yaml:"name"`
	Calories    float64 `yaml:"calories"`
	Protein     float64 `yaml:"protein"`
	Carbs       float64 `yaml:"carbs"`
	Fat         float64 `yaml:"fat"`
	ServingSize string  `yaml:"servingSize"`
}

// SeedUser is an account with optional personalized foods.
type SeedUser struct {
	Email     string     `yaml:"email"`
	Password  string     `yaml:"password"`
	Name      string     `yaml:"name"`
	Overrides []SeedFood `yaml:"overrides"`
}

func (f SeedFood) info() nutrition.FoodInfo {
	return nutrition.FoodInfo{
		Barcode:     f.Barcode,
		Name:        f.Name,
		Calories:    f.Calories,
		Protein:     f.Protein,
		Carbs:       f.Carbs,
		Fat:         f.Fat,
		ServingSize: f.ServingSize,
	}
}

// DefaultSeed is a small catalog with one demo account.
func DefaultSeed() *Seed {
	return &Seed{
		Foods: []SeedFood{
			{Barcode: "0001", Name: "Banana", Calories: 105, Protein: 1, Carbs: 27, Fat: 0, ServingSize: "1 medium"},
			{Barcode: "0002", Name: "Rolled Oats", Calories: 150, Protein: 5, Carbs: 27, Fat: 3, ServingSize: "40 g"},
			{Barcode: "0003", Name: "Greek Yogurt", Calories: 100, Protein: 17, Carbs: 6, Fat: 0.7, ServingSize: "170 g"},
			{Barcode: "0004", Name: "Peanut Butter", Calories: 190, Protein: 7, Carbs: 7, Fat: 16, ServingSize: "2 tbsp"},
		},
		Users: []SeedUser{
			{
				Email:    "demo@nutritrack.dev",
				Password: "demo",
				Name:     "Demo",
				Overrides: []SeedFood{
					{Barcode: "0002", Name: "Rolled Oats (home scale)", Calories: 190, Protein: 6.5, Carbs: 34, Fat: 3.8, ServingSize: "50 g"},
				},
			},
		},
	}
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stubapi: read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("stubapi: parse seed %s: %w", path, err)
	}
	return &seed, nil
}

// ApplySeed loads seed's foods and users into the server.
func (s *Server) ApplySeed(seed *Seed) error {
	if seed == nil {
		return nil
	}
	for _, f := range seed.Foods {
		if err := s.AddFood(f.info()); err != nil {
			return err
		}
	}
	for _, u := range seed.Users {
		user, err := s.AddUser(u.Email, u.Password, u.Name)
		if err != nil {
			return fmt.Errorf("stubapi: seed user %s: %w", u.Email, err)
		}
		for _, f := range u.Overrides {
			if err := s.Personalize(user.ID, f.info()); err != nil {
				return err
			}
		}
	}
	s.log.WithFields(map[string]interface{}{
		"foods": len(seed.Foods),
		"users": len(seed.Users),
	}).Info("Seed data loaded")
	return nil
}
