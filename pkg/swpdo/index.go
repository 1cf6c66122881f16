package swpdo

import "time"

// IndexSet enumerates the sparse variable index tuples (C3, spec.md §2) from
// the pre-processed network and the horizon. It never touches the solver; it
// only decides which (n,p,s,t) / (o,d,p,t,s) combinations are structurally
// possible, so the Model Builder (C4) never has to instantiate a variable
// for an impossible combination.
type IndexSet struct {
	ProductionKeys       []ProdKey
	MixKeys              []ProdKey
	ProductProducedKeys  []ProdKey
	StartKeys            []ProdKey

	InventoryKeys []InvKey

	PalletCountKeys []InvKey
	PalletEntryKeys []InvKey

	ThawKeys   []ProdKey
	FreezeKeys []ProdKey

	TransitKeys []TransitKey

	TruckLoadKeys []TruckLoadKey

	DemandKeys []DemandKey
}

// ProdKey indexes per-node per-product per-day variables: production,
// mix_count, product_produced, start, thaw, freeze.
type ProdKey struct {
	Node    NodeID
	Product ProductID
	Date    time.Time
}

// InvKey indexes per-node per-product per-state per-day variables:
// inventory, pallet_count, pallet_entry.
type InvKey struct {
	Node    NodeID
	Product ProductID
	State   StorageState
	Date    time.Time
}

// TransitKey indexes in_transit[o,d,p,t,s], keyed by departure date t.
type TransitKey struct {
	Origin      NodeID
	Destination NodeID
	Product     ProductID
	Depart      time.Time
	State       StorageState
}

// Arrival returns the delivery date implied by transit days.
func (k TransitKey) Arrival(transitDays int) time.Time {
	return k.Depart.AddDate(0, 0, transitDays)
}

// TruckLoadKey indexes truck_pallet_load[k,t,p].
type TruckLoadKey struct {
	TruckID string
	Date    time.Time
	Product ProductID
}

// DemandKey indexes demand_consumed[d,p,t] and shortage[d,p,t].
type DemandKey struct {
	Destination NodeID
	Product     ProductID
	Date        time.Time
}

// BuildIndex enumerates every variable index family from the pre-processed
// network and the horizon (C3, spec.md §2).
func BuildIndex(req *SolveRequest, nm *NetworkModel) *IndexSet {
	idx := &IndexSet{}
	days := req.Horizon.Days()

	for _, n := range nm.ProduceNodes {
		for pid := range req.Products {
			for _, d := range days {
				key := ProdKey{Node: n, Product: pid, Date: d}
				idx.ProductionKeys = append(idx.ProductionKeys, key)
				idx.MixKeys = append(idx.MixKeys, key)
				idx.ProductProducedKeys = append(idx.ProductProducedKeys, key)
				idx.StartKeys = append(idx.StartKeys, key)
			}
		}
	}

	for _, n := range nm.FreezeNodes {
		for pid := range req.Products {
			for _, d := range days {
				idx.FreezeKeys = append(idx.FreezeKeys, ProdKey{Node: n, Product: pid, Date: d})
			}
		}
	}

	for _, n := range nm.ThawNodes {
		for pid := range req.Products {
			for _, d := range days {
				idx.ThawKeys = append(idx.ThawKeys, ProdKey{Node: n, Product: pid, Date: d})
			}
		}
	}

	for state, nodes := range nm.StorageNodesByState {
		for _, n := range nodes {
			for pid := range req.Products {
				for _, d := range days {
					key := InvKey{Node: n, Product: pid, State: state, Date: d}
					idx.InventoryKeys = append(idx.InventoryKeys, key)
					if req.Options.UsePalletTracking {
						idx.PalletCountKeys = append(idx.PalletCountKeys, key)
						idx.PalletEntryKeys = append(idx.PalletEntryKeys, key)
					}
				}
			}
		}
	}

	// in_transit is indexed by departure date. Both departure and arrival
	// must land inside the horizon: an arrival past horizon_end would
	// depart the origin (subtracted from its mass balance) without ever
	// reaching an InvKey at the destination to receive it, silently
	// breaking the global mass-closure invariant (spec.md §3).
	for _, r := range req.Routes {
		for pid := range req.Products {
			if !nm.Reachable(r.Origin, r.Destination, pid, r.ArrivalState) {
				continue
			}
			for _, d := range days {
				arrival := d.AddDate(0, 0, r.TransitDays)
				if arrival.After(req.Horizon.End) {
					continue
				}
				idx.TransitKeys = append(idx.TransitKeys, TransitKey{
					Origin: r.Origin, Destination: r.Destination, Product: pid,
					Depart: d, State: r.ArrivalState,
				})
			}
		}
	}

	if req.Options.UseTruckPalletTracking {
		for _, ti := range nm.TruckInstances {
			for pid := range req.Products {
				idx.TruckLoadKeys = append(idx.TruckLoadKeys, TruckLoadKey{
					TruckID: ti.TruckID, Date: ti.Date, Product: pid,
				})
			}
		}
	}

	for _, fe := range req.Forecast {
		idx.DemandKeys = append(idx.DemandKeys, DemandKey{
			Destination: fe.Destination, Product: fe.Product, Date: fe.DeliveryDate,
		})
	}

	return idx
}
