// Package achievements — catalog.go содержит статический каталог достижений.
package achievements

// DefaultCatalog возвращает каталог достижений платформы.
// Порядок не важен: оценка проходит по всем записям.
func DefaultCatalog() []Achievement {
	return []Achievement{
		// Первые шаги
		{Code: "first_post", Title: "Первый пост", Kind: KindSourceCount, Threshold: 1, Source: "post_created"},
		{Code: "first_marker", Title: "Первая метка", Kind: KindSourceCount, Threshold: 1, Source: "marker_created"},
		{Code: "first_route", Title: "Первый маршрут", Kind: KindSourceCount, Threshold: 1, Source: "route_created"},

		// Плодовитость
		{Code: "author_10", Title: "Автор: 10 постов", Kind: KindSourceCount, Threshold: 10, Source: "post_created"},
		{Code: "cartographer_25", Title: "Картограф: 25 меток", Kind: KindSourceCount, Threshold: 25, Source: "marker_created"},
		{Code: "pathfinder_5", Title: "Проводник: 5 маршрутов", Kind: KindSourceCount, Threshold: 5, Source: "route_created"},

		// Уровни
		{Code: "level_5", Title: "Уровень 5", Kind: KindLevel, Threshold: 5},
		{Code: "level_10", Title: "Уровень 10", Kind: KindLevel, Threshold: 10},
		{Code: "level_25", Title: "Уровень 25", Kind: KindLevel, Threshold: 25},
		{Code: "level_50", Title: "Геоблогер", Kind: KindLevel, Threshold: 50},

		// Накопленный опыт
		{Code: "xp_1000", Title: "1000 XP", Kind: KindTotalXP, Threshold: 1000},
		{Code: "xp_10000", Title: "10000 XP", Kind: KindTotalXP, Threshold: 10000},
	}
}
