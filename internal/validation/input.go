package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinDisputeReasonLength = 3
	MaxDisputeReasonLength = 2000
	MaxBeneficiaryIDLength = 50
)

// Идентификатор получателя Cashfree Payouts: буквы, цифры, подчёркивание, точка, дефис.
var beneficiaryIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должна быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должна быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустой", fieldName)
	}
	return nil
}

// DisputeReason нормализует и проверяет причину спора.
// Переводы строк допустимы, остальные управляющие символы нет.
func DisputeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if err := ValidateNonEmpty("причина спора", reason); err != nil {
		return "", err
	}
	if err := ValidateLength("причина спора", reason, MinDisputeReasonLength, MaxDisputeReasonLength); err != nil {
		return "", err
	}

	for _, r := range reason {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return "", fmt.Errorf("причина спора содержит недопустимые символы")
		}
	}

	return reason, nil
}

// BeneficiaryID проверяет идентификатор получателя выплат.
func BeneficiaryID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if err := ValidateNonEmpty("идентификатор получателя", id); err != nil {
		return "", err
	}
	if err := ValidateLength("идентификатор получателя", id, 0, MaxBeneficiaryIDLength); err != nil {
		return "", err
	}
	if !beneficiaryIDRegex.MatchString(id) {
		return "", fmt.Errorf("идентификатор получателя может содержать только латинские буквы, цифры, точку, дефис и подчёркивание")
	}
	return id, nil
}
