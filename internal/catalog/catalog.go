package catalog

import (
	"github.com/onehorn/event-booking-backend/internal/models"
)

// AllCategories is the sentinel category that matches every package
const AllCategories = "All Packages"

// Categories lists the filter options in display order
var Categories = []string{
	AllCategories,
	"Weddings",
	"Corporate",
	"Birthdays",
	"Music Events",
	"Product Launches",
}

// Feature is one line of a package's feature list
type Feature struct {
	Name     string `json:"name"`
	Included bool   `json:"included"`
}

// Package is an immutable catalog entry. Price is in whole rupees.
type Package struct {
	Name        string    `json:"name"`
	Price       int64     `json:"price"`
	Description string    `json:"description"`
	Categories  []string  `json:"categories"`
	Features    []Feature `json:"features"`
	Popular     bool      `json:"popular"`
}

// Total returns the package price as Money
func (p Package) Total() models.Money {
	return models.Rupees(p.Price)
}

// InCategory reports whether the package is tagged with the category
func (p Package) InCategory(category string) bool {
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func (p Package) clone() Package {
	out := p
	out.Categories = append([]string(nil), p.Categories...)
	out.Features = append([]Feature(nil), p.Features...)
	return out
}

var packages = []Package{
	{
		Name:        "Essential",
		Price:       349000,
		Description: "Perfect for smaller events with basic requirements",
		Categories:  []string{AllCategories, "Weddings", "Birthdays"},
		Features: []Feature{
			{Name: "Event Planning & Coordination", Included: true},
			{Name: "Venue Selection Assistance", Included: true},
			{Name: "Basic Decor Package", Included: true},
			{Name: "Event Timeline Creation", Included: true},
			{Name: "Vendor Recommendations", Included: true},
			{Name: "Day-of Coordination (8 hours)", Included: true},
			{Name: "Custom Theme Design", Included: false},
			{Name: "Premium Catering Options", Included: false},
			{Name: "Photography & Videography", Included: false},
			{Name: "VIP Guest Management", Included: false},
		},
	},
	{
		Name:        "Premium",
		Price:       499999,
		Description: "Our most popular package for medium-sized events",
		Categories:  []string{AllCategories, "Weddings", "Corporate", "Birthdays", "Product Launches"},
		Features: []Feature{
			{Name: "Event Planning & Coordination", Included: true},
			{Name: "Venue Selection Assistance", Included: true},
			{Name: "Enhanced Decor Package", Included: true},
			{Name: "Event Timeline Creation", Included: true},
			{Name: "Vendor Management", Included: true},
			{Name: "Day-of Coordination (12 hours)", Included: true},
			{Name: "Custom Theme Design", Included: true},
			{Name: "Premium Catering Options", Included: true},
			{Name: "Photography & Videography", Included: false},
			{Name: "VIP Guest Management", Included: false},
		},
		Popular: true,
	},
	{
		Name:        "Luxury",
		Price:       699999,
		Description: "All-inclusive package for the most memorable events",
		Categories:  []string{AllCategories, "Weddings", "Corporate", "Music Events", "Product Launches"},
		Features: []Feature{
			{Name: "Event Planning & Coordination", Included: true},
			{Name: "Venue Selection Assistance", Included: true},
			{Name: "Luxury Decor Package", Included: true},
			{Name: "Event Timeline Creation", Included: true},
			{Name: "Full Vendor Management", Included: true},
			{Name: "Day-of Coordination (Full Day)", Included: true},
			{Name: "Custom Theme Design", Included: true},
			{Name: "Premium Catering Options", Included: true},
			{Name: "Photography & Videography", Included: true},
			{Name: "VIP Guest Management", Included: true},
		},
	},
}

// Packages returns a copy of every catalog package
func Packages() []Package {
	out := make([]Package, 0, len(packages))
	for _, p := range packages {
		out = append(out, p.clone())
	}
	return out
}

// FilterByCategory returns the packages tagged with category.
// "All" and "All Packages" return the whole catalog; an unknown category returns an empty list.
func FilterByCategory(category string) []Package {
	if category == "" || category == "All" || category == AllCategories {
		return Packages()
	}
	out := []Package{}
	for _, p := range packages {
		if p.InCategory(category) {
			out = append(out, p.clone())
		}
	}
	return out
}

// Find looks a package up by its exact name
func Find(name string) (Package, bool) {
	for _, p := range packages {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Package{}, false
}
