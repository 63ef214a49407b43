// Package mlcookbook is a teaching-oriented machine learning library for Go,
// built as the companion code for a series of introductory blog posts.
//
// Every post loads one of the bundled toy datasets, splits it with a fixed
// seed, fits one or more models and reports standard metrics, so readers can
// rerun the code and get byte-identical numbers.
//
// # Quick Start
//
// Fitting linear regression on the diabetes dataset:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/mlcookbook/datasets"
//	    "github.com/YuminosukeSato/mlcookbook/experiment"
//	    "github.com/YuminosukeSato/mlcookbook/sklearn/linear_model"
//	)
//
//	func main() {
//	    runner := experiment.NewRunner(
//	        experiment.WithSeed(42),
//	        experiment.WithTestFraction(0.2),
//	    )
//	    result, err := runner.RunRegression("LinearRegression",
//	        linear_model.NewLinearRegression(), datasets.LoadDiabetes())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("R² = %.4f\n", result.R2)
//	}
//
// # Packages
//
//   - datasets: bundled toy datasets (diabetes, breast_cancer, penguins)
//   - sklearn/model_selection: seeded train/test splitting
//   - sklearn/linear_model: LinearRegression, LogisticRegression
//   - sklearn/tree, sklearn/ensemble: DecisionTreeClassifier, RandomForestClassifier
//   - sklearn/naive_bayes: GaussianNB
//   - sklearn/cluster: KMeans, DBSCAN, GaussianMixture
//   - metrics: regression, classification, clustering and outlier metrics
//   - preprocessing: StandardScaler
//   - experiment: reproducible run orchestration with structured logging
//   - visualize: PNG figure renderers for the posts
//   - core/model, core/parallel: shared interfaces and helpers
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//
// # Reproducibility
//
// All stochastic estimators accept an explicit random seed and every
// experiment records its seed and split fraction in structured logs. The
// same seed always reproduces the same split, the same fitted parameters
// and the same metrics.
//
// # Example Posts
//
// The examples directory contains one runnable main package per post:
// diabetes_regression, breastcancer_classification, penguins_clustering and
// penguins_outliers.
package mlcookbook
