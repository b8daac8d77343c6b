package geniusweb

func testDomain() *Domain {
	return &Domain{
		Name: "jobs",
		IssuesValues: map[string]ValueSet{
			"salary": &DiscreteValueSet{Items: []DiscreteValue{"2000", "3000", "4000"}},
			"car":    &DiscreteValueSet{Items: []DiscreteValue{"no", "yes"}},
		},
	}
}

func testProfile() *LinearAdditiveUtilitySpace {
	return &LinearAdditiveUtilitySpace{
		ProfileName:   "jobs-employee",
		ProfileDomain: testDomain(),
		IssueWeights:  map[string]float64{"salary": 0.75, "car": 0.25},
		IssueUtilities: map[string]ValueSetUtilities{
			"salary": &DiscreteValueSetUtilities{ValueUtilities: map[string]float64{"2000": 0, "3000": 0.5, "4000": 1}},
			"car":    &DiscreteValueSetUtilities{ValueUtilities: map[string]float64{"no": 0, "yes": 1}},
		},
		Reservation: NewBid(map[string]Value{"salary": DiscreteValue("3000"), "car": DiscreteValue("no")}),
	}
}

func bid(salary, car string) *Bid {
	return NewBid(map[string]Value{"salary": DiscreteValue(salary), "car": DiscreteValue(car)})
}
