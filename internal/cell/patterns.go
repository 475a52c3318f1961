package cell

import "regexp"

var (
	reWikidata     = regexp.MustCompile(`^[PQ]\d+$`)
	reWikidataItem = regexp.MustCompile(`^Q\d+$`)
	reFile         = regexp.MustCompile(`(?i)^.+\.(jpg|jpeg|tif|tiff|png)$`)
	reLocation     = regexp.MustCompile(`^([-+]?\d+|[-+]?\d*\.\d+)°?\s*[,/]?\s*([-+]?\d+|[-+]?\d*\.\d+)°?$`)
)

// LooksLikeLocation reports whether s matches the coordinate pattern.
func LooksLikeLocation(s string) bool {
	return reLocation.MatchString(s)
}

// LooksLikeFile reports whether s looks like an image file name.
func LooksLikeFile(s string) bool {
	return reFile.MatchString(s)
}
