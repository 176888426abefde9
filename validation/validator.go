// Package validation 校验文档键、集合名与字段名
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Qonfucius/herdb-arangodb/errors"
)

const (
	// MaxKeyLength 文档键最大字节数
	MaxKeyLength = 254
	// MaxNameLength 集合名/数据库名最大字节数
	MaxNameLength = 256
)

var (
	keyRegex        = regexp.MustCompile(`^[a-zA-Z0-9_\-:.@()+,=;$!*'%]+$`)
	collectionRegex = regexp.MustCompile(`^_?[a-zA-Z][a-zA-Z0-9_\-]*$`)
	identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// IValidator 定义通用验证器接口
type IValidator interface {
	Validate(value any) error
}

// ValidatorFunc 函数适配器
type ValidatorFunc func(value any) error

// Validate 实现 IValidator 接口
func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

// ValidateRequired 验证必填字段
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError("%s must not be empty", fieldName)
	}
	return nil
}

// ValidateStringLength 验证字符串字节长度，max <= 0 表示不限制
func ValidateStringLength(value, fieldName string, min, max int) error {
	length := len(value)
	if length < min {
		return errors.NewValidationError("%s must be at least %d bytes (got %d)", fieldName, min, length)
	}
	if max > 0 && length > max {
		return errors.NewValidationError("%s must be at most %d bytes (got %d)", fieldName, max, length)
	}
	return nil
}

// ValidateDocumentKey 验证 ArangoDB 文档键
func ValidateDocumentKey(key string) error {
	if err := ValidateRequired(key, "_key"); err != nil {
		return err
	}
	if err := ValidateStringLength(key, "_key", 1, MaxKeyLength); err != nil {
		return err
	}
	if !keyRegex.MatchString(key) {
		return errors.NewValidationError("_key %q contains characters not allowed in a document key", key)
	}
	return nil
}

// ValidateCollectionName 验证集合名（允许 _ 开头的系统集合）
func ValidateCollectionName(name string) error {
	return validateName(name, "collection name")
}

// ValidateDatabaseName 验证数据库名
func ValidateDatabaseName(name string) error {
	return validateName(name, "database name")
}

func validateName(name, what string) error {
	if err := ValidateRequired(name, what); err != nil {
		return err
	}
	if err := ValidateStringLength(name, what, 1, MaxNameLength); err != nil {
		return err
	}
	if !collectionRegex.MatchString(name) {
		return errors.NewValidationError(
			"%s %q must start with a letter and contain only letters, digits, '_' or '-'", what, name)
	}
	return nil
}

// ValidateIdentifier 验证字段名等标识符
func ValidateIdentifier(name, fieldName string) error {
	if err := ValidateRequired(name, fieldName); err != nil {
		return err
	}
	if !identifierRegex.MatchString(name) {
		return errors.NewValidationError("%s %q is not a valid identifier", fieldName, name)
	}
	return nil
}

// ValidateEnum 验证枚举值
func ValidateEnum(value, fieldName string, validValues []string) error {
	for _, valid := range validValues {
		if value == valid {
			return nil
		}
	}
	return errors.NewValidationError("%s %q is invalid, expected one of %s",
		fieldName, value, fmt.Sprint(validValues))
}
