// Package report folds a finished or abandoned run into a neutral
// document tree. The tree is pure data: no file I/O happens here, and the
// external renderer turns it into PDF or DOCX. Ordering is deterministic
// so two builds of the same run produce identical documents.
package report
