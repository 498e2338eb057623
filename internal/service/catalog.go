package service

import "github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"

// DefaultCatalog returns the built-in ingredient list served by the dev
// server. IDs are stable so clients can persist constructions across runs.
func DefaultCatalog() []model.Ingredient {
	return []model.Ingredient{
		{ID: "bun-krator", Name: "Krator bun N-200i", Type: model.TypeBun, Proteins: 80, Fat: 24, Carbohydrates: 53, Calories: 420, Price: 1255, Image: img("bun-02"), ImageMobile: imgMobile("bun-02"), ImageLarge: imgLarge("bun-02")},
		{ID: "bun-fluorescent", Name: "Fluorescent bun R2-D3", Type: model.TypeBun, Proteins: 44, Fat: 26, Carbohydrates: 85, Calories: 643, Price: 988, Image: img("bun-01"), ImageMobile: imgMobile("bun-01"), ImageLarge: imgLarge("bun-01")},
		{ID: "sauce-spicy-x", Name: "Spicy-X sauce", Type: model.TypeSauce, Proteins: 30, Fat: 20, Carbohydrates: 40, Calories: 30, Price: 90, Image: img("sauce-02"), ImageMobile: imgMobile("sauce-02"), ImageLarge: imgLarge("sauce-02")},
		{ID: "sauce-spacy", Name: "Space sauce", Type: model.TypeSauce, Proteins: 50, Fat: 22, Carbohydrates: 11, Calories: 14, Price: 80, Image: img("sauce-04"), ImageMobile: imgMobile("sauce-04"), ImageLarge: imgLarge("sauce-04")},
		{ID: "main-meteorite", Name: "Beef meteorite cutlet", Type: model.TypeMain, Proteins: 800, Fat: 800, Carbohydrates: 300, Calories: 2674, Price: 3000, Image: img("meat-04"), ImageMobile: imgMobile("meat-04"), ImageLarge: imgLarge("meat-04")},
		{ID: "main-magnolia", Name: "Martian Magnolia filet", Type: model.TypeMain, Proteins: 420, Fat: 142, Carbohydrates: 242, Calories: 4242, Price: 424, Image: img("meat-01"), ImageMobile: imgMobile("meat-01"), ImageLarge: imgLarge("meat-01")},
		{ID: "main-crisps", Name: "Antarian flatwalker crisps", Type: model.TypeMain, Proteins: 44, Fat: 26, Carbohydrates: 85, Calories: 643, Price: 762, Image: img("meat-02"), ImageMobile: imgMobile("meat-02"), ImageLarge: imgLarge("meat-02")},
		{ID: "main-salad", Name: "Immortal salad with exo-plantago", Type: model.TypeMain, Proteins: 58, Fat: 2, Carbohydrates: 20, Calories: 30, Price: 215, Image: img("salad"), ImageMobile: imgMobile("salad"), ImageLarge: imgLarge("salad")},
		{ID: "main-cheese", Name: "Alpha Centauri asteroid cheese", Type: model.TypeMain, Proteins: 84, Fat: 48, Carbohydrates: 420, Calories: 3377, Price: 4142, Image: img("cheese"), ImageMobile: imgMobile("cheese"), ImageLarge: imgLarge("cheese")},
		{ID: "main-rings", Name: "Crispy mineral rings", Type: model.TypeMain, Proteins: 808, Fat: 689, Carbohydrates: 609, Calories: 986, Price: 300, Image: img("mineral_rings"), ImageMobile: imgMobile("mineral_rings"), ImageLarge: imgLarge("mineral_rings")},
	}
}

const imageBase = "https://code.s3.yandex.net/react/code/"

func img(slug string) string       { return imageBase + slug + ".png" }
func imgMobile(slug string) string { return imageBase + slug + "-mobile.png" }
func imgLarge(slug string) string  { return imageBase + slug + "-large.png" }
