package booking

// DefaultCatalogue is the service list the memory driver starts with and
// cmd/seed writes to an empty database.
var DefaultCatalogue = []SalonService{
	{ID: 1, Title: "Women's haircut", Price: 45},
	{ID: 2, Title: "Men's haircut", Price: 30},
	{ID: 3, Title: "Hair coloring", Price: 90},
	{ID: 4, Title: "Manicure", Price: 25},
	{ID: 5, Title: "Pedicure", Price: 35},
	{ID: 6, Title: "Brow shaping", Price: 15},
}
