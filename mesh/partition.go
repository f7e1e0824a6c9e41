package mesh

// PartitionMap splits the cell ids [0, MaxIndex) into ParallelDegree
// contiguous buckets whose sizes differ by at most one. The first
// MaxIndex % ParallelDegree buckets hold the extra cell.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // [begin, end) of each bucket
}

func NewPartitionMap(parallelDegree, maxIndex int) *PartitionMap {
	parallelDegree = max(parallelDegree, 1)
	pm := &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: parallelDegree,
		Partitions:     make([][2]int, parallelDegree),
	}
	var (
		size  = maxIndex / parallelDegree
		extra = maxIndex % parallelDegree
		begin int
	)
	for n := range pm.Partitions {
		end := begin + size
		if n < extra {
			end++
		}
		pm.Partitions[n] = [2]int{begin, end}
		begin = end
	}
	return pm
}

// Partition buckets the cell ids of the mesh for n workers.
func (m *Mesh) Partition(n int) *PartitionMap {
	return NewPartitionMap(n, m.CellCount())
}

// GetBucketRange returns the cell ids [kMin, kMax) of bucket bn.
func (pm *PartitionMap) GetBucketRange(bn int) (kMin, kMax int) {
	return pm.Partitions[bn][0], pm.Partitions[bn][1]
}
