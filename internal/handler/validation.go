package handler

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	shortcodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,30}$`)
	registerOnce     sync.Once
)

// FieldIssue 单个字段的校验问题
type FieldIssue struct {
	Field   string `json:"field,omitempty" example:"url"`
	Rule    string `json:"rule,omitempty" example:"url"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// RegisterValidators 向 gin 的校验器注册 shortcode 规则，并用 json 字段名报告错误
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
			return shortcodePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("wholenumber", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return f == math.Trunc(f)
		})
	})
}

// describeBindError 把绑定错误转换成可读的问题列表
func describeBindError(err error) []FieldIssue {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]FieldIssue, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, FieldIssue{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		return issues
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []FieldIssue{{Field: typeErr.Field, Rule: "type", Message: "expected " + typeErr.Type.String()}}
	}
	return []FieldIssue{{Message: err.Error()}}
}

// explicitNulls 找出请求体中显式为 null 的可选字段
// 指针字段无法区分省略与 null，需要回看原始请求体
func explicitNulls(c *gin.Context, fields ...string) []FieldIssue {
	raw, ok := c.Get(gin.BodyBytesKey)
	if !ok {
		return nil
	}
	body, _ := raw.([]byte)
	var values map[string]json.RawMessage
	if err := json.Unmarshal(body, &values); err != nil {
		return nil
	}

	var issues []FieldIssue
	for _, field := range fields {
		if v, present := values[field]; present && string(v) == "null" {
			issues = append(issues, FieldIssue{Field: field, Rule: "type", Message: "must not be null"})
		}
	}
	return issues
}
