package nutrition

// referenceEntries is the built-in table, values per 100g of cooked food (USDA).
func referenceEntries() []Entry {
	return []Entry{
		{
			ID:             "chicken_breast",
			DisplayName:    "Chicken Breast",
			Category:       CategoryProtein,
			ProteinPer100g: 31.0,
			Portions: []Portion{
				{Label: "small", Grams: 120, Description: "4oz serving"},
				{Label: "medium", Grams: 150, Description: "5oz serving"},
				{Label: "large", Grams: 180, Description: "6oz serving"},
				{Label: "extra_large", Grams: 240, Description: "8oz serving"},
			},
			PreparationModifiers: map[string]float64{
				"grilled": 1.0,
				"baked":   1.0,
				"fried":   0.9, // breading and oil dilute protein density
				"boiled":  1.0,
				"roasted": 1.0,
			},
			VisualCues: []string{"white meat", "lean", "palm-sized", "thick slice"},
			Keywords:   []string{"chicken", "breast", "poultry", "white meat"},
		},
		{
			ID:             "chicken_thigh",
			DisplayName:    "Chicken Thigh",
			Category:       CategoryProtein,
			ProteinPer100g: 26.0,
			Portions: []Portion{
				{Label: "small", Grams: 100, Description: "1 small thigh"},
				{Label: "medium", Grams: 130, Description: "1 medium thigh"},
				{Label: "large", Grams: 160, Description: "1 large thigh"},
			},
			PreparationModifiers: map[string]float64{
				"grilled": 1.0,
				"baked":   1.0,
				"fried":   0.9,
				"roasted": 1.0,
			},
			VisualCues: []string{"darker meat", "bone-in or boneless", "triangular shape"},
			Keywords:   []string{"chicken", "thigh", "dark meat"},
		},
		{
			ID:             "beef_steak",
			DisplayName:    "Beef Steak",
			Category:       CategoryProtein,
			ProteinPer100g: 26.0,
			Portions: []Portion{
				{Label: "small", Grams: 150, Description: "5oz steak"},
				{Label: "medium", Grams: 200, Description: "7oz steak"},
				{Label: "large", Grams: 280, Description: "10oz steak"},
			},
			PreparationModifiers: map[string]float64{
				"grilled":    1.0,
				"pan_seared": 1.0,
				"broiled":    1.0,
				"well_done":  0.95,
			},
			VisualCues: []string{"red meat", "thick cut", "grill marks", "marbled"},
			Keywords:   []string{"beef", "steak", "sirloin", "ribeye", "filet"},
		},
		{
			ID:             "ground_beef",
			DisplayName:    "Ground Beef",
			Category:       CategoryProtein,
			ProteinPer100g: 25.0,
			Portions: []Portion{
				{Label: "small", Grams: 100, Description: "1/4 lb patty"},
				{Label: "medium", Grams: 150, Description: "1/3 lb serving"},
				{Label: "large", Grams: 200, Description: "1/2 lb serving"},
			},
			PreparationModifiers: map[string]float64{
				"grilled":   1.0,
				"pan_fried": 0.95,
				"baked":     1.0,
			},
			VisualCues: []string{"crumbled", "patty shape", "browned"},
			Keywords:   []string{"ground beef", "hamburger", "meatball", "patty"},
		},
		{
			ID:             "salmon",
			DisplayName:    "Salmon",
			Category:       CategoryProtein,
			ProteinPer100g: 25.0,
			Portions: []Portion{
				{Label: "small", Grams: 120, Description: "4oz fillet"},
				{Label: "medium", Grams: 150, Description: "5oz fillet"},
				{Label: "large", Grams: 180, Description: "6oz fillet"},
			},
			PreparationModifiers: map[string]float64{
				"grilled":    1.0,
				"baked":      1.0,
				"pan_seared": 1.0,
				"smoked":     1.1, // water loss concentrates protein
			},
			VisualCues: []string{"pink/orange flesh", "flaky", "skin on/off", "fillet shape"},
			Keywords:   []string{"salmon", "fish", "fillet", "pink fish"},
		},
		{
			ID:             "tuna",
			DisplayName:    "Tuna",
			Category:       CategoryProtein,
			ProteinPer100g: 30.0,
			Portions: []Portion{
				{Label: "small", Grams: 120, Description: "4oz serving"},
				{Label: "medium", Grams: 150, Description: "5oz serving"},
				{Label: "large", Grams: 180, Description: "6oz serving"},
			},
			PreparationModifiers: map[string]float64{
				"grilled":      1.0,
				"seared":       1.0,
				"canned_water": 0.9,
				"canned_oil":   0.85,
			},
			VisualCues: []string{"dark red/pink", "meaty texture", "steak-like"},
			Keywords:   []string{"tuna", "ahi", "yellowfin", "fish steak"},
		},
		{
			ID:             "tofu",
			DisplayName:    "Tofu",
			Category:       CategoryProtein,
			ProteinPer100g: 8.0,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "Small cube (3oz)"},
				{Label: "medium", Grams: 120, Description: "Medium serving (4oz)"},
				{Label: "large", Grams: 150, Description: "Large serving (5oz)"},
			},
			PreparationModifiers: map[string]float64{
				"raw":     1.0,
				"grilled": 1.0,
				"fried":   1.0,
				"baked":   1.0,
			},
			VisualCues: []string{"white/beige", "cube shape", "soft texture"},
			Keywords:   []string{"tofu", "bean curd", "soy"},
		},
		{
			ID:             "tempeh",
			DisplayName:    "Tempeh",
			Category:       CategoryProtein,
			ProteinPer100g: 19.0,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "Small slice (3oz)"},
				{Label: "medium", Grams: 100, Description: "Medium slice (3.5oz)"},
				{Label: "large", Grams: 120, Description: "Large slice (4oz)"},
			},
			PreparationModifiers: map[string]float64{
				"steamed": 1.0,
				"grilled": 1.0,
				"fried":   1.0,
			},
			VisualCues: []string{"nutty texture", "rectangular block", "visible beans"},
			Keywords:   []string{"tempeh", "fermented soy"},
		},
		{
			ID:             "eggs",
			DisplayName:    "Eggs",
			Category:       CategoryProtein,
			ProteinPer100g: 13.0,
			Portions: []Portion{
				{Label: "one_egg", Grams: 50, Description: "1 large egg"},
				{Label: "two_eggs", Grams: 100, Description: "2 large eggs"},
				{Label: "three_eggs", Grams: 150, Description: "3 large eggs"},
			},
			PreparationModifiers: map[string]float64{
				"scrambled": 1.0,
				"fried":     1.0,
				"boiled":    1.0,
				"poached":   1.0,
				"omelet":    1.0,
			},
			VisualCues: []string{"yellow yolk", "white protein", "oval shape"},
			Keywords:   []string{"egg", "scrambled", "fried", "boiled", "omelet"},
		},
		{
			ID:             "greek_yogurt",
			DisplayName:    "Greek Yogurt",
			Category:       CategoryProtein,
			ProteinPer100g: 10.0,
			Portions: []Portion{
				{Label: "small", Grams: 170, Description: "6oz container"},
				{Label: "medium", Grams: 227, Description: "8oz serving"},
				{Label: "large", Grams: 340, Description: "12oz serving"},
			},
			PreparationModifiers: map[string]float64{
				"plain":    1.0,
				"flavored": 0.9,
			},
			VisualCues: []string{"thick creamy texture", "white", "bowl or container"},
			Keywords:   []string{"yogurt", "greek yogurt", "dairy"},
		},
		{
			ID:             "white_rice",
			DisplayName:    "White Rice",
			Category:       CategoryCarbohydrate,
			ProteinPer100g: 2.7,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "1/3 cup cooked"},
				{Label: "medium", Grams: 150, Description: "2/3 cup cooked"},
				{Label: "large", Grams: 200, Description: "1 cup cooked"},
			},
			PreparationModifiers: map[string]float64{
				"steamed": 1.0,
				"boiled":  1.0,
				"fried":   1.0,
			},
			VisualCues: []string{"small white grains", "fluffy texture", "individual grains"},
			Keywords:   []string{"rice", "white rice", "grain", "steamed rice"},
		},
		{
			ID:             "brown_rice",
			DisplayName:    "Brown Rice",
			Category:       CategoryCarbohydrate,
			ProteinPer100g: 3.0,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "1/3 cup cooked"},
				{Label: "medium", Grams: 150, Description: "2/3 cup cooked"},
				{Label: "large", Grams: 200, Description: "1 cup cooked"},
			},
			PreparationModifiers: map[string]float64{
				"steamed": 1.0,
				"boiled":  1.0,
				"fried":   1.0,
			},
			VisualCues: []string{"brown grains", "nuttier appearance", "individual grains"},
			Keywords:   []string{"brown rice", "whole grain rice", "grain"},
		},
		{
			ID:             "quinoa",
			DisplayName:    "Quinoa",
			Category:       CategoryCarbohydrate,
			ProteinPer100g: 4.4,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "1/3 cup cooked"},
				{Label: "medium", Grams: 150, Description: "2/3 cup cooked"},
				{Label: "large", Grams: 200, Description: "1 cup cooked"},
			},
			PreparationModifiers: map[string]float64{
				"steamed": 1.0,
				"boiled":  1.0,
			},
			VisualCues: []string{"small round grains", "light colored", "fluffy"},
			Keywords:   []string{"quinoa", "grain", "superfood"},
		},
		{
			ID:             "broccoli",
			DisplayName:    "Broccoli",
			Category:       CategoryVegetable,
			ProteinPer100g: 2.8,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "1/2 cup"},
				{Label: "medium", Grams: 150, Description: "1 cup"},
				{Label: "large", Grams: 200, Description: "1.5 cups"},
			},
			PreparationModifiers: map[string]float64{
				"steamed":    1.0,
				"raw":        1.0,
				"roasted":    1.0,
				"stir_fried": 1.0,
			},
			VisualCues: []string{"green florets", "tree-like structure", "stems"},
			Keywords:   []string{"broccoli", "green vegetable", "florets"},
		},
		{
			ID:             "spinach",
			DisplayName:    "Spinach",
			Category:       CategoryVegetable,
			ProteinPer100g: 2.9,
			Portions: []Portion{
				{Label: "small", Grams: 30, Description: "1 cup raw"},
				{Label: "medium", Grams: 60, Description: "2 cups raw"},
				{Label: "large", Grams: 100, Description: "Large salad portion"},
			},
			PreparationModifiers: map[string]float64{
				"raw":     1.0,
				"sauteed": 1.0,
				"steamed": 1.0,
			},
			VisualCues: []string{"dark green leaves", "leafy", "wilted when cooked"},
			Keywords:   []string{"spinach", "leafy greens", "salad"},
		},
		{
			ID:             "black_beans",
			DisplayName:    "Black Beans",
			Category:       CategoryLegume,
			ProteinPer100g: 9.0,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "1/3 cup"},
				{Label: "medium", Grams: 120, Description: "1/2 cup"},
				{Label: "large", Grams: 180, Description: "3/4 cup"},
			},
			PreparationModifiers: map[string]float64{
				"cooked": 1.0,
				"canned": 0.95,
			},
			VisualCues: []string{"small black oval beans", "individual beans visible"},
			Keywords:   []string{"black beans", "beans", "legumes"},
		},
		{
			ID:             "chickpeas",
			DisplayName:    "Chickpeas",
			Category:       CategoryLegume,
			ProteinPer100g: 8.0,
			Portions: []Portion{
				{Label: "small", Grams: 80, Description: "1/3 cup"},
				{Label: "medium", Grams: 120, Description: "1/2 cup"},
				{Label: "large", Grams: 180, Description: "3/4 cup"},
			},
			PreparationModifiers: map[string]float64{
				"cooked":  1.0,
				"canned":  0.95,
				"roasted": 1.1,
			},
			VisualCues: []string{"round beige beans", "bumpy texture"},
			Keywords:   []string{"chickpeas", "garbanzo beans", "hummus base"},
		},
	}
}
