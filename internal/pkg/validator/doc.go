// Package validator wraps go-playground/validator so usecases depend on a
// one-method interface and get field errors keyed by their JSON names.
package validator
