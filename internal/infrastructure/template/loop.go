package template

import (
	"github.com/flosch/pongo2/v6"
)

// addressMap is the type of the addresses variable. It is still a map, so
// addresses[user] and addresses.alice resolve as usual, but the for tag
// below walks it in the order names were first bound.
type addressMap map[string]string

// addressOrderKey names the context variable listing user names in the
// order they were bound.
const addressOrderKey = "address_order"

type loopInformation struct {
	Counter     int
	Counter0    int
	Revcounter  int
	Revcounter0 int
	First       bool
	Last        bool
	Parentloop  *loopInformation
}

type forNode struct {
	key             string
	value           string
	objectEvaluator pongo2.IEvaluator
	reversed        bool
	sorted          bool

	bodyWrapper  *pongo2.NodeWrapper
	emptyWrapper *pongo2.NodeWrapper
}

func (node *forNode) Execute(ctx *pongo2.ExecutionContext, writer pongo2.TemplateWriter) (forError *pongo2.Error) {
	forCtx := pongo2.NewChildExecutionContext(ctx)

	loopInfo := &loopInformation{First: true}
	if parent, ok := forCtx.Private["forloop"].(*loopInformation); ok {
		loopInfo.Parentloop = parent
	}
	forCtx.Private["forloop"] = loopInfo

	obj, err := node.objectEvaluator.Evaluate(forCtx)
	if err != nil {
		return err
	}

	body := func(idx, count int, key, value *pongo2.Value) bool {
		forCtx.Private[node.key] = key
		if value != nil && node.value != "" {
			forCtx.Private[node.value] = value
		}
		loopInfo.Counter = idx + 1
		loopInfo.Counter0 = idx
		loopInfo.First = idx == 0
		loopInfo.Last = idx+1 == count
		loopInfo.Revcounter = count - idx
		loopInfo.Revcounter0 = count - (idx + 1)

		if err := node.bodyWrapper.Execute(forCtx, writer); err != nil {
			forError = err
			return false
		}
		return true
	}
	empty := func() {
		if node.emptyWrapper != nil {
			if err := node.emptyWrapper.Execute(forCtx, writer); err != nil {
				forError = err
			}
		}
	}

	if m, ok := obj.Interface().(addressMap); ok && !node.sorted {
		order, _ := ctx.Public[addressOrderKey].([]string)
		iterateInOrder(m, order, node.reversed, body, empty)
		return forError
	}

	obj.IterateOrder(body, empty, node.reversed, node.sorted)
	return forError
}

func iterateInOrder(m addressMap, order []string, reversed bool, fn func(idx, count int, key, value *pongo2.Value) bool, empty func()) {
	keys := make([]string, 0, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		empty()
		return
	}
	if reversed {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	for idx, k := range keys {
		if !fn(idx, len(keys), pongo2.AsValue(k), pongo2.AsValue(m[k])) {
			return
		}
	}
}

// forParser accepts the same syntax as the stock for tag:
//
//	{% for key[, value] in expr [reversed] [sorted] %}...[{% empty %}...]{% endfor %}
func forParser(doc *pongo2.Parser, start *pongo2.Token, arguments *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
	node := &forNode{}

	keyToken := arguments.MatchType(pongo2.TokenIdentifier)
	if keyToken == nil {
		return nil, arguments.Error("Expected an key identifier as first argument for 'for'-tag", nil)
	}
	node.key = keyToken.Val

	if arguments.Match(pongo2.TokenSymbol, ",") != nil {
		valueToken := arguments.MatchType(pongo2.TokenIdentifier)
		if valueToken == nil {
			return nil, arguments.Error("Value name must be an identifier.", nil)
		}
		node.value = valueToken.Val
	}

	if arguments.Match(pongo2.TokenKeyword, "in") == nil {
		return nil, arguments.Error("Expected keyword 'in'.", nil)
	}

	objectEvaluator, err := arguments.ParseExpression()
	if err != nil {
		return nil, err
	}
	node.objectEvaluator = objectEvaluator

	if arguments.MatchOne(pongo2.TokenIdentifier, "reversed") != nil {
		node.reversed = true
	}
	if arguments.MatchOne(pongo2.TokenIdentifier, "sorted") != nil {
		node.sorted = true
	}
	if arguments.Remaining() > 0 {
		return nil, arguments.Error("Malformed for-loop arguments.", nil)
	}

	wrapper, endargs, err := doc.WrapUntilTag("empty", "endfor")
	if err != nil {
		return nil, err
	}
	node.bodyWrapper = wrapper
	if endargs.Count() > 0 {
		return nil, endargs.Error("Arguments not allowed here.", nil)
	}

	if wrapper.Endtag == "empty" {
		wrapper, endargs, err = doc.WrapUntilTag("endfor")
		if err != nil {
			return nil, err
		}
		node.emptyWrapper = wrapper
		if endargs.Count() > 0 {
			return nil, endargs.Error("Arguments not allowed here.", nil)
		}
	}

	return node, nil
}
