package scoring

func groceryCard() Card {
	return Card{
		ID:                 "grocer-cash",
		Name:               "Grocer Cash",
		AnnualFee:          Float(0),
		Rewards:            []Reward{{Category: "groceries", Rate: Float(3)}},
		PointValueBaseline: Float(0.01),
	}
}

func premiumTravelCard() Card {
	return Card{
		ID:             "sky-reserve",
		Name:           "Sky Reserve",
		Issuer:         "Northwind Bank",
		AnnualFee:      Float(550),
		ForeignFees:    "None",
		MinCreditScore: Float(740),
		Rewards: []Reward{
			{Category: "Travel and dining", Rate: Float(3)},
			{Category: "Hotels booked through portal", Rate: Float(10)},
			{Category: "Everything else", Rate: Float(1)},
		},
		PointValueBaseline: Float(0.015),
		PointValueMax:      Float(0.02),
		SignUpBonus:        &SignUpBonus{Description: "60k points", ValueEstimate: Float(900)},
		RecommendedGoals:   StringList{"points_miles"},
		CreditsAndBenefits: StringList{
			"$300 annual travel credit",
			"Priority Pass lounge access",
			"Trip cancellation and trip delay insurance",
			"Primary rental car coverage",
		},
		TransferPartners: StringList{"Delta SkyMiles", "United MileagePlus", "Marriott Bonvoy", "Hilton Honors"},
		PairingSynergy:   StringList{"Everyday Cash", "Grocer Cash"},
		QuizMetadata: &QuizMetadata{
			RecommendedFor: StringList{"frequent_traveler", "excellent_credit"},
			ManualTags:     StringList{"optimizer"},
		},
	}
}

func localCreditUnionCard() Card {
	return Card{
		ID:               "prairie-cu",
		Name:             "Prairie CU Rewards",
		AnnualFee:        Float(0),
		AvailableRegions: StringList{"IL", "WI"},
		Rewards:          []Reward{{Category: "Gas", Rate: Float(2)}},
		QuizMetadata: &QuizMetadata{
			LocalOnly:      Bool(true),
			RegionPriority: StringList{"il"},
		},
	}
}
