package fare

import (
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/apperror"
)

// Class は座席クラスを表す
type Class string

const (
	ClassA Class = "A"
	ClassB Class = "B"
	ClassC Class = "C"
)

// 1駅・1席あたりの運賃
var rates = map[Class]int{
	ClassA: 100,
	ClassB: 75,
	ClassC: 50,
}

var (
	ErrStationNotOnRoute = apperror.New(apperror.KindNotFound, "STATION_NOT_ON_ROUTE", "指定された駅はこの路線に停車しません")
	ErrInvalidRoute      = apperror.New(apperror.KindValidation, "INVALID_ROUTE", "到着駅は出発駅より後である必要があります")
	ErrUnknownClass      = apperror.New(apperror.KindValidation, "UNKNOWN_CLASS", "座席クラスは A, B, C のいずれかです")
	ErrInvalidSeatCount  = apperror.New(apperror.KindValidation, "INVALID_SEAT_COUNT", "座席数は1以上である必要があります")
)

// Rate はクラスごとの1駅・1席あたりの運賃を返す
func Rate(c Class) (int, error) {
	r, ok := rates[c]
	if !ok {
		return 0, ErrUnknownClass
	}
	return r, nil
}

// IsValid はクラスが定義済みかを返す
func (c Class) IsValid() bool {
	_, ok := rates[c]
	return ok
}

// Quote は運賃計算の結果
type Quote struct {
	Class       Class
	StationSpan int
	SeatCount   int
	Price       int
}

// Calculate は停車駅リスト上の区間と座席数から運賃を計算する
func Calculate(class Class, stations []schedule.Station, start, destination string, seatCount int) (Quote, error) {
	rate, err := Rate(class)
	if err != nil {
		return Quote{}, err
	}
	if seatCount <= 0 {
		return Quote{}, ErrInvalidSeatCount
	}
	from, ok := positionOf(stations, start)
	if !ok {
		return Quote{}, ErrStationNotOnRoute
	}
	to, ok := positionOf(stations, destination)
	if !ok {
		return Quote{}, ErrStationNotOnRoute
	}
	span := to - from
	if span <= 0 {
		return Quote{}, ErrInvalidRoute
	}
	return Quote{
		Class:       class,
		StationSpan: span,
		SeatCount:   seatCount,
		Price:       rate * span * seatCount,
	}, nil
}

// Reprice は既存の運賃基準（1席あたりの運賃）を保ったまま座席数を変更した運賃を返す
func Reprice(oldPrice, oldSeatCount, newSeatCount int) (int, error) {
	if oldSeatCount <= 0 || newSeatCount <= 0 {
		return 0, ErrInvalidSeatCount
	}
	return oldPrice / oldSeatCount * newSeatCount, nil
}

func positionOf(stations []schedule.Station, name string) (int, bool) {
	for _, st := range stations {
		if st.Name == name {
			return st.Position, true
		}
	}
	return 0, false
}
