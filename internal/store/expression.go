package store

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateExpression is a partial update over every non-key attribute of an item
type UpdateExpression struct {
	Expression string
	// Names maps alias tokens to attribute names
	Names map[string]string
	// Values maps value placeholders to attribute values
	Values map[string]types.AttributeValue
}

// ExpressionBuilder builds the write expression for an item.
// Stores that address attributes directly can provide a trivial implementation.
type ExpressionBuilder interface {
	BuildUpdate(primaryKey string, item map[string]types.AttributeValue) (UpdateExpression, error)
}

type placeholderExpressionBuilder struct{}

// NewExpressionBuilder returns a builder that aliases every attribute name and value,
// so that reserved words such as "from", "to", "name" or "value" never reach the
// expression text.
func NewExpressionBuilder() ExpressionBuilder {
	return placeholderExpressionBuilder{}
}

// BuildUpdate returns "set #a0 = :v0, #a1 = :v1, ..." over the attributes in name order
func (placeholderExpressionBuilder) BuildUpdate(primaryKey string, item map[string]types.AttributeValue) (UpdateExpression, error) {
	attributes := slices.DeleteFunc(slices.Sorted(maps.Keys(item)), func(name string) bool {
		return name == primaryKey
	})
	if len(attributes) == 0 {
		return UpdateExpression{}, ErrNothingToUpdate
	}

	expr := UpdateExpression{
		Names:  make(map[string]string, len(attributes)),
		Values: make(map[string]types.AttributeValue, len(attributes)),
	}

	var sb strings.Builder
	sb.WriteString("set ")
	for i, name := range attributes {
		alias := fmt.Sprintf("#a%d", i)
		placeholder := fmt.Sprintf(":v%d", i)
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(alias)
		sb.WriteString(" = ")
		sb.WriteString(placeholder)

		expr.Names[alias] = name
		expr.Values[placeholder] = item[name]
	}
	expr.Expression = sb.String()

	return expr, nil
}
