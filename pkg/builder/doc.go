// Package builder implements the pipeline that turns a CPython release into
// a runtime archive for a Heroku stack image: fetch the upstream sources,
// configure and compile them for the target prefix, trim the install tree
// and pack the result for upload.
package builder
