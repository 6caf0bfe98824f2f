// Package region reads KML area-of-interest documents and reduces the first
// placemark of the first feature collection to a latitude/longitude bounding
// rectangle.
package region
