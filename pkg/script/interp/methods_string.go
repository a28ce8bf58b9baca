package interp

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stringMethods covers scalar text values extracted from cells, so
// generated code can post-process individual strings.
var stringMethods = methodRegistry{
	"toUpper":  {fn: stringToUpper, minArgs: 0, maxArgs: 0},
	"toLower":  {fn: stringToLower, minArgs: 0, maxArgs: 0},
	"toTitle":  {fn: stringToTitle, minArgs: 0, maxArgs: 0},
	"trim":     {fn: stringTrim, minArgs: 0, maxArgs: 0},
	"split":    {fn: stringSplit, minArgs: 1, maxArgs: 1},
	"replace":  {fn: stringReplace, minArgs: 2, maxArgs: 2},
	"length":   {fn: stringLength, minArgs: 0, maxArgs: 0},
	"includes": {fn: stringIncludes, minArgs: 1, maxArgs: 1},
}

func stringToUpper(recv Object, _ []Object) Object {
	return &String{Value: strings.ToUpper(recv.(*String).Value)}
}

func stringToLower(recv Object, _ []Object) Object {
	return &String{Value: strings.ToLower(recv.(*String).Value)}
}

func stringToTitle(recv Object, _ []Object) Object {
	caser := cases.Title(language.English)
	return &String{Value: caser.String(recv.(*String).Value)}
}

func stringTrim(recv Object, _ []Object) Object {
	return &String{Value: strings.TrimSpace(recv.(*String).Value)}
}

func stringSplit(recv Object, args []Object) Object {
	sep, errObj := stringArg("split", 0, args)
	if errObj != nil {
		return errObj
	}
	parts := strings.Split(recv.(*String).Value, sep)
	elems := make([]Object, len(parts))
	for i, p := range parts {
		elems[i] = &String{Value: p}
	}
	return &List{Elements: elems}
}

func stringReplace(recv Object, args []Object) Object {
	old, errObj := stringArg("replace", 0, args)
	if errObj != nil {
		return errObj
	}
	repl, errObj := stringArg("replace", 1, args)
	if errObj != nil {
		return errObj
	}
	return &String{Value: strings.ReplaceAll(recv.(*String).Value, old, repl)}
}

func stringLength(recv Object, _ []Object) Object {
	return &Integer{Value: int64(len([]rune(recv.(*String).Value)))}
}

func stringIncludes(recv Object, args []Object) Object {
	sub, errObj := stringArg("includes", 0, args)
	if errObj != nil {
		return errObj
	}
	return nativeBool(strings.Contains(recv.(*String).Value, sub))
}
