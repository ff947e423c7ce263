package audit

import "testing"

func TestFormatUpdatedWithProperties(t *testing.T) {
	got := Format(Payload{
		Actor:       "Mechanic 1",
		Action:      ActionUpdated,
		Subject:     SubjectVehicle,
		SubjectName: "1990 Nissan Pathfinder",
		UpdatedProperties: []UpdatedProperty{
			{Property: "name", Value: "1990 Nissan Pathfinder (Red)"},
			{Property: "mileage", Value: "300000"},
		},
	})
	want := "Mechanic 1 updated vehicle 1990 Nissan Pathfinder. Updated values = name: 1990 Nissan Pathfinder (Red), mileage: 300000"
	if got != want {
		t.Fatalf("format mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestFormatUpdatedWithoutProperties(t *testing.T) {
	p := Payload{
		Actor:       "Mechanic 1",
		Action:      ActionUpdated,
		Subject:     SubjectVehicle,
		SubjectName: "Civic",
	}
	want := "Mechanic 1 updated vehicle Civic"

	// nil 与空数组必须产生同样的结果
	if got := Format(p); got != want {
		t.Fatalf("nil properties: got %q", got)
	}
	p.UpdatedProperties = []UpdatedProperty{}
	if got := Format(p); got != want {
		t.Fatalf("empty properties: got %q", got)
	}
}

func TestFormatSkipsEmptyProperties(t *testing.T) {
	got := Format(Payload{
		Actor:       "Mechanic 1",
		Action:      ActionUpdated,
		Subject:     SubjectVehicle,
		SubjectName: "Civic",
		UpdatedProperties: []UpdatedProperty{
			{Property: "", Value: "x"},
			{Property: "mileage", Value: "120000"},
			{Property: "vin", Value: ""},
		},
	})
	want := "Mechanic 1 updated vehicle Civic. Updated values = mileage: 120000"
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestFormatCreatedDeletedSharedApplied(t *testing.T) {
	cases := []struct {
		payload Payload
		want    string
	}{
		{
			Payload{Actor: "Sam", Action: ActionCreated, Subject: SubjectVehicle, SubjectName: "Civic"},
			"Sam created vehicle Civic",
		},
		{
			Payload{Actor: "Sam", Action: ActionDeleted, Subject: SubjectRepairLog, SubjectName: "Brakes"},
			"Sam deleted repair log Brakes",
		},
		{
			Payload{Actor: "Sam", Action: ActionShared, Subject: SubjectVehicle, SubjectName: "Civic", TargetName: "Alex"},
			"Sam shared vehicle Civic with Alex",
		},
		{
			Payload{Actor: "Sam", Action: ActionApplied, Subject: SubjectScheduledServiceType, SubjectName: "Oil Change", TargetName: "vehicle Civic"},
			"Sam applied scheduled service type(s) Oil Change to vehicle Civic",
		},
	}
	for _, c := range cases {
		if got := Format(c.payload); got != c.want {
			t.Fatalf("got %q want %q", got, c.want)
		}
	}
}
