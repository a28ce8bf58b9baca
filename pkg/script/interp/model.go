package interp

import (
	"fmt"

	"github.com/shpitdev/reshape/pkg/stats"
	"github.com/shpitdev/reshape/pkg/table"
)

var modelMethods = methodRegistry{
	"predictInto": {fn: modelPredictInto, minArgs: 2, maxArgs: 2},
	"score":       {fn: modelScore, minArgs: 1, maxArgs: 1},
	"name":        {fn: modelName, minArgs: 0, maxArgs: 0},
}

// fitModel trains an ordinary least squares model on the rows where the
// target and every feature are numeric.
func fitModel(t *table.Table, target string, features []string) (*Model, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("needs at least one feature column")
	}
	if !t.HasColumn(target) {
		return nil, fmt.Errorf("unknown column %q", target)
	}
	for _, f := range features {
		if !t.HasColumn(f) {
			return nil, fmt.Errorf("unknown column %q", f)
		}
	}

	var matrix [][]float64
	var targets []float64
	for i := 0; i < t.RowCount(); i++ {
		row := t.At(i)
		y, ok := cellNumber(row[target])
		if !ok {
			continue
		}
		x, ok := featureVector(row, features)
		if !ok {
			continue
		}
		matrix = append(matrix, x)
		targets = append(targets, y)
	}
	if len(matrix) == 0 {
		return nil, fmt.Errorf("no rows with numeric %q and feature values", target)
	}

	coefs, intercept, err := stats.Fit(matrix, targets)
	if err != nil {
		return nil, err
	}
	return &Model{Target: target, Features: features, Coefs: coefs, Intercept: intercept}, nil
}

func (m *Model) predict(x []float64) float64 {
	y := m.Intercept
	for i, c := range m.Coefs {
		y += c * x[i]
	}
	return y
}

// modelPredictInto returns a new table with a prediction column: a value
// where every feature is numeric, null elsewhere.
func modelPredictInto(recv Object, args []Object) Object {
	m := recv.(*Model)
	tbl, ok := args[0].(*Table)
	if !ok {
		return newError("predictInto: argument 1 must be a table, got %s", args[0].Type())
	}
	newCol, errObj := stringArg("predictInto", 1, args)
	if errObj != nil {
		return errObj
	}

	t := tbl.Value
	for _, f := range m.Features {
		if !t.HasColumn(f) {
			return newError("predictInto: unknown column %q", f)
		}
	}
	values := make([]any, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		x, ok := featureVector(t.At(i), m.Features)
		if !ok {
			continue
		}
		values[i] = m.predict(x)
	}
	out, err := t.SetColumn(newCol, values)
	if err != nil {
		return newError("predictInto: %s", err)
	}
	return &Table{Value: out}
}

func modelScore(recv Object, args []Object) Object {
	m := recv.(*Model)
	tbl, ok := args[0].(*Table)
	if !ok {
		return newError("score: argument 1 must be a table, got %s", args[0].Type())
	}
	truth, predicted, err := m.evaluate(tbl.Value)
	if err != nil {
		return newError("score: %s", err)
	}
	r2, err := stats.R2(truth, predicted)
	if err != nil {
		return newError("score: %s", err)
	}
	return &Float{Value: r2}
}

// evaluate collects truth/prediction pairs from the rows where the target
// and all features are numeric.
func (m *Model) evaluate(t *table.Table) (truth, predicted []float64, err error) {
	if !t.HasColumn(m.Target) {
		return nil, nil, fmt.Errorf("unknown column %q", m.Target)
	}
	for _, f := range m.Features {
		if !t.HasColumn(f) {
			return nil, nil, fmt.Errorf("unknown column %q", f)
		}
	}
	for i := 0; i < t.RowCount(); i++ {
		row := t.At(i)
		y, ok := cellNumber(row[m.Target])
		if !ok {
			continue
		}
		x, ok := featureVector(row, m.Features)
		if !ok {
			continue
		}
		truth = append(truth, y)
		predicted = append(predicted, m.predict(x))
	}
	if len(truth) == 0 {
		return nil, nil, fmt.Errorf("no rows with numeric %q and feature values", m.Target)
	}
	return truth, predicted, nil
}

func modelName(Object, []Object) Object {
	return &String{Value: "LinearRegression"}
}

func featureVector(row table.Row, features []string) ([]float64, bool) {
	x := make([]float64, len(features))
	for i, f := range features {
		v, ok := cellNumber(row[f])
		if !ok {
			return nil, false
		}
		x[i] = v
	}
	return x, true
}

func cellNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
