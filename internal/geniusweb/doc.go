// Package geniusweb описывает модель переговоров со стороны GeniusWeb:
// значения, биды, домены, профили полезности, действия и inform-события,
// а также JSON-формат, в котором они передаются (Jackson WRAPPER_OBJECT).
//
// Партия получает события через NotifyChange и отвечает действиями через
// Connection.Send, а не возвращаемым значением.
package geniusweb
