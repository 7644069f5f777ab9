package domain

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/nagrik-gov/portal/internal/shared/errors"
)

// DefaultDepartment receives every category the routing table does not know.
const DefaultDepartment = "Administration"

// defaultRouting maps report categories to the municipal department that
// handles them.
var defaultRouting = map[string]string{
	"Pothole":            "Roads",
	"Road Damage":        "Roads",
	"Garbage Collection": "Sanitation",
	"Illegal Dumping":    "Sanitation",
	"Street Light":       "Street Lighting",
	"Water Leakage":      "Water Supply",
	"Drainage Block":     "Drainage",
	"Tree Falling Risk":  "Roads",
	"Sewage Overflow":    "Drainage",
	"Park Maintenance":   "Sanitation",
}

// Router resolves the department responsible for a report category.
type Router struct {
	table map[string]string
}

// NewRouter builds a router from the built-in table.
func NewRouter() *Router {
	table := make(map[string]string, len(defaultRouting))
	for category, department := range defaultRouting {
		table[category] = department
	}
	return &Router{table: table}
}

// routingOverrides is the YAML shape of an overrides file:
//
//	categories:
//	  Pothole: Roads
type routingOverrides struct {
	Categories map[string]string `yaml:"categories"`
}

// NewRouterFromFile builds a router with overrides loaded from a YAML file
// merged over the built-in table. An empty path returns the default router.
func NewRouterFromFile(path string) (*Router, error) {
	router := NewRouter()
	if path == "" {
		return router, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, "reading routing overrides")
	}

	var overrides routingOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, apperrors.Wrap(err, "parsing routing overrides")
	}

	for category, department := range overrides.Categories {
		router.table[category] = department
	}
	return router, nil
}

// Department returns the department for a category, falling back to
// Administration for unknown categories.
func (r *Router) Department(category string) string {
	if department, ok := r.table[category]; ok {
		return department
	}
	return DefaultDepartment
}

// Categories returns the known categories in no particular order.
func (r *Router) Categories() []string {
	out := make([]string, 0, len(r.table))
	for category := range r.table {
		out = append(out, category)
	}
	return out
}

func validationError(details map[string]string) error {
	return apperrors.Validation("invalid report input", details)
}
