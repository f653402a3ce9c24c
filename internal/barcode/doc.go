// Package barcode decodes EAN-13 and UPC-A symbols from images. It drives the
// row scanner in internal/detector over an image, translates the module widths
// of each full record into digits and validates the check digit.
//
// Example:
//
//	be, _ := barcode.NewBackend()
//	results, err := be.Decode(ctx, img, barcode.Options{TryRotations: true})
package barcode
