package model

import (
	"github.com/ettle/strcase"
	"github.com/jinzhu/inflection"
)

// TableName is the conventional table for a model: "UserProfile" -> "user_profiles".
func TableName(model string) string {
	return inflection.Plural(strcase.ToSnake(model))
}

// FileName is the conventional CSV base name for a model: "UserProfile" -> "user_profile".
func FileName(model string) string {
	return strcase.ToSnake(model)
}

// ModelName turns a table, association or seeder name into a model name:
// "user_profiles" -> "UserProfile".
func ModelName(name string) string {
	return strcase.ToPascal(inflection.Singular(strcase.ToSnake(name)))
}
