package seed

import "github.com/angelmondragon/sweetshop-backend/internal/catalog"

func sampleSweets() []catalog.SweetInput {
	return []catalog.SweetInput{
		{
			Name:        "Gulab Jamun",
			Image:       "/gulab-jamun.png",
			Description: "Deep-fried milk solids soaked in sugar syrup",
			Featured:    true,
			Sizes:       []catalog.Size{{Label: "250g", Price: 150}, {Label: "500g", Price: 280}, {Label: "1kg", Price: 550}},
			Tags:        []string{"Popular", "Classic"},
		},
		{
			Name:        "Rasgulla",
			Image:       "/rasgulla.png",
			Description: "Soft, spongy cheese balls soaked in sugar syrup",
			Sizes:       []catalog.Size{{Label: "250g", Price: 120}, {Label: "500g", Price: 230}, {Label: "1kg", Price: 450}},
			Tags:        []string{"Bestseller"},
		},
		{
			Name:        "Jalebi",
			Image:       "/jalebi.png",
			Description: "Crispy, pretzel-shaped sweets soaked in sugar syrup",
			Featured:    true,
			Sizes:       []catalog.Size{{Label: "250g", Price: 100}, {Label: "500g", Price: 190}, {Label: "1kg", Price: 370}},
			Tags:        []string{"Crispy"},
		},
		{
			Name:        "Kaju Katli",
			Image:       "/kaju-katli.png",
			Description: "Diamond-shaped cashew fudge with silver foil topping",
			Sizes:       []catalog.Size{{Label: "250g", Price: 300}, {Label: "500g", Price: 580}, {Label: "1kg", Price: 1100}},
			Tags:        []string{"Premium", "Gift"},
		},
		{
			Name:        "Rasmalai",
			Image:       "/rasmalai.png",
			Description: "Flattened cheese patties soaked in sweetened, thickened milk",
			Featured:    true,
			Sizes:       []catalog.Size{{Label: "250g", Price: 220}, {Label: "500g", Price: 420}, {Label: "1kg", Price: 800}},
			Tags:        []string{"Creamy", "Festive"},
		},
		{
			Name:        "Barfi",
			Image:       "/barfi-sweets.png",
			Description: "Dense milk-based sweet with various flavors",
			Sizes:       []catalog.Size{{Label: "250g", Price: 180}, {Label: "500g", Price: 350}, {Label: "1kg", Price: 680}},
			Tags:        []string{"Traditional"},
		},
	}
}
