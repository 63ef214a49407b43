package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStandardScalerFitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 10,
		2, 20,
		4, 30,
		6, 40,
	})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := scaled.Dims()
	for j := 0; j < c; j++ {
		mean, variance := 0.0, 0.0
		for i := 0; i < r; i++ {
			mean += scaled.At(i, j)
		}
		mean /= float64(r)
		for i := 0; i < r; i++ {
			diff := scaled.At(i, j) - mean
			variance += diff * diff
		}
		variance /= float64(r)

		if math.Abs(mean) > 1e-10 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		if math.Abs(variance-1.0) > 1e-10 {
			t.Errorf("column %d variance = %v, want 1", j, variance)
		}
	}
}

func TestStandardScalerInverseTransformRoundTrip(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1.5, -2.0,
		3.0, 0.5,
		-1.0, 4.0,
	})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	restored, err := scaler.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}

	if !mat.EqualApprox(X, restored, 1e-10) {
		t.Errorf("round trip mismatch:\noriginal:\n%v\nrestored:\n%v",
			mat.Formatted(X), mat.Formatted(restored))
	}
}

func TestStandardScalerOptions(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{2, 4, 6})

	// デフォルトは平均も標準偏差も適用される
	def := NewStandardScaler()
	if !def.WithMean || !def.WithStd {
		t.Fatalf("default scaler = (WithMean=%v, WithStd=%v), want (true, true)",
			def.WithMean, def.WithStd)
	}

	// 平均のみ引く(標準偏差では割らない)
	centered := NewStandardScaler(WithScalerStd(false))
	out, err := centered.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	want := []float64{-2, 0, 2}
	for i, w := range want {
		if math.Abs(out.At(i, 0)-w) > 1e-10 {
			t.Errorf("centered[%d] = %v, want %v", i, out.At(i, 0), w)
		}
	}

	// 平均を引かずに標準偏差のみで割る
	scaledOnly := NewStandardScaler(WithScalerMean(false))
	out, err = scaledOnly.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if out.At(i, 0) <= 0 {
			t.Errorf("scale-only output[%d] = %v, want positive", i, out.At(i, 0))
		}
	}
}

func TestStandardScalerConstantColumn(t *testing.T) {
	// ゼロ分散の列はスケール1として扱う
	X := mat.NewDense(3, 1, []float64{5, 5, 5})

	scaler := NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if scaled.At(i, 0) != 0 {
			t.Errorf("constant column should scale to 0, got %v", scaled.At(i, 0))
		}
	}
}

func TestStandardScalerNotFitted(t *testing.T) {
	scaler := NewStandardScaler()
	if _, err := scaler.Transform(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Transform() before Fit() should fail")
	}
}

func TestStandardScalerDimensionMismatch(t *testing.T) {
	scaler := NewStandardScaler()
	if err := scaler.Fit(mat.NewDense(3, 2, nil)); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := scaler.Transform(mat.NewDense(3, 5, nil)); err == nil {
		t.Error("Transform() with wrong feature count should fail")
	}
}
